package models

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCouriers_Catalog(t *testing.T) {
	cs := Couriers()
	require.Len(t, cs, 10)
	require.Equal(t, CourierAutoDetect, cs[0].Key)
	require.Equal(t, "Auto Detect", cs[0].Name)

	require.True(t, CourierUPS.Known())
	require.Equal(t, "UPS", CourierUPS.Name())
	require.False(t, Courier(42).Known())
	require.Equal(t, "", Courier(42).Name())

	// копия: правка результата не трогает каталог
	cs[1].Name = "X"
	require.Equal(t, "FedEx", Couriers()[1].Name)
}

func TestErrorKind(t *testing.T) {
	require.Equal(t, "", ErrorKind(nil))
	require.Equal(t, "InvalidInput", ErrorKind(ErrInvalidInput))
	require.Equal(t, "ProviderRejected", ErrorKind(errors.Wrap(ErrProviderRejected, "register")))
	require.Equal(t, "NetworkFailure", ErrorKind(errors.Wrapf(ErrNetworkFailure, "do request: %s", "eof")))
	require.Equal(t, "Unexpected", ErrorKind(errors.New("boom")))
}

func TestNormalizeTrackingNumber(t *testing.T) {
	require.Equal(t, "1Z999", NormalizeTrackingNumber("  1Z999 \n"))
	require.Equal(t, "", NormalizeTrackingNumber("   "))
}
