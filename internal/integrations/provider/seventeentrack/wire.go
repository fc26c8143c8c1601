package seventeentrack

import (
	"encoding/json"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
)

type numberItem struct {
	Number  string `json:"number"`
	Carrier int    `json:"carrier,omitempty"`
}

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

type wireAddress struct {
	Country    string `json:"country"`
	State      string `json:"state"`
	City       string `json:"city"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
}

type wireEvent struct {
	TimeISO     string `json:"time_iso"`
	TimeUTC     string `json:"time_utc"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Stage       string `json:"stage"`
}

type trackInfoData struct {
	Accepted []struct {
		Number    string `json:"number"`
		Carrier   int    `json:"carrier"`
		TrackInfo struct {
			ShippingInfo *struct {
				ShipperAddress   *wireAddress `json:"shipper_address"`
				RecipientAddress *wireAddress `json:"recipient_address"`
			} `json:"shipping_info"`
			LatestStatus *struct {
				Status    string `json:"status"`
				SubStatus string `json:"sub_status"`
			} `json:"latest_status"`
			LatestEvent *wireEvent `json:"latest_event"`
			Tracking    *struct {
				Providers []struct {
					Provider struct {
						Name     string `json:"name"`
						Tel      string `json:"tel"`
						Homepage string `json:"homepage"`
					} `json:"provider"`
					Events []wireEvent `json:"events"`
				} `json:"providers"`
			} `json:"tracking"`
		} `json:"track_info"`
	} `json:"accepted"`
}

type trackListData struct {
	Accepted []struct {
		Number          string `json:"number"`
		PackageStatus   string `json:"package_status"`
		LatestEventInfo string `json:"latest_event_info"`
		LatestEventTime string `json:"latest_event_time"`
	} `json:"accepted"`
}

type listRequest struct {
	PageNo     int    `json:"page_no"`
	DataOrigin string `json:"data_origin"`
}

func (d trackInfoData) firstRecord() (*models.TrackingRecord, bool) {
	if len(d.Accepted) == 0 {
		return nil, false
	}
	a := d.Accepted[0]
	ti := a.TrackInfo

	rec := &models.TrackingRecord{
		Number:     a.Number,
		CarrierKey: a.Carrier,
	}
	if ti.LatestStatus != nil {
		rec.Status = ti.LatestStatus.Status
		rec.SubStatus = ti.LatestStatus.SubStatus
	}
	if ti.LatestEvent != nil {
		ev := toEvent(*ti.LatestEvent)
		rec.LatestEvent = &ev
	}
	if ti.ShippingInfo != nil {
		rec.Origin = toAddress(ti.ShippingInfo.ShipperAddress)
		rec.Destination = toAddress(ti.ShippingInfo.RecipientAddress)
	}
	// Берём первого провайдера, остальные дублируют события.
	if ti.Tracking != nil && len(ti.Tracking.Providers) > 0 {
		p := ti.Tracking.Providers[0]
		rec.Provider = &models.ProviderInfo{
			Name:     p.Provider.Name,
			Tel:      p.Provider.Tel,
			Homepage: p.Provider.Homepage,
		}
		for _, e := range p.Events {
			rec.Events = append(rec.Events, toEvent(e))
		}
	}
	return rec, true
}

func toEvent(e wireEvent) models.TrackingEvent {
	ts := e.TimeISO
	if ts == "" {
		ts = e.TimeUTC
	}
	return models.TrackingEvent{
		Time:        parseTime(ts),
		Description: e.Description,
		Location:    e.Location,
		Stage:       e.Stage,
	}
}

func toAddress(a *wireAddress) *models.Address {
	if a == nil {
		return nil
	}
	return &models.Address{
		Country:    a.Country,
		State:      a.State,
		City:       a.City,
		Street:     a.Street,
		PostalCode: a.PostalCode,
	}
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
