package models

import (
	"strings"
	"time"
)

// Статусы провайдера, которые мы различаем явно. Остальные показываем как есть.
const (
	TrackingStatusUnknown  = "Unknown"
	TrackingStatusNotFound = "NotFound"
)

// ViewMonitoredDeliveries: экран, куда клиент переходит после успешной регистрации/удаления.
const ViewMonitoredDeliveries = "monitored-deliveries"

// TrackingNumber is trimmed before use; an empty result is invalid input.
func NormalizeTrackingNumber(s string) string {
	return strings.TrimSpace(s)
}

type Address struct {
	Country    string
	State      string
	City       string
	Street     string
	PostalCode string
}

type TrackingEvent struct {
	Time        *time.Time
	Description string
	Location    string
	Stage       string
}

type ProviderInfo struct {
	Name     string
	Tel      string
	Homepage string
}

// TrackingRecord: снимок состояния у провайдера. Принадлежит провайдеру, мы только читаем.
type TrackingRecord struct {
	Number     string
	CarrierKey int

	Status    string
	SubStatus string

	LatestEvent *TrackingEvent

	Origin      *Address
	Destination *Address

	Provider *ProviderInfo
	Events   []TrackingEvent
}

// TrackedItem: строка списка отслеживаемых номеров.
type TrackedItem struct {
	Number          string
	PackageStatus   string
	LatestEventInfo string
	LatestEventTime *time.Time
}
