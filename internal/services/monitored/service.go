// Package monitored renders the read-only views: the list of tracked
// numbers and the details of one of them. Nothing is cached; every call
// goes to the provider.
package monitored

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/pkg/errors"
)

const (
	DefaultStatus   = models.TrackingStatusUnknown
	DefaultUpdate   = "No recent updates"
	DefaultCity     = "Unknown"
	DefaultLocation = "N/A"

	MsgNoData       = "No tracking data found for this number."
	HintNotFound    = "Tracking not found. Please try deleting it and re-adding with a specific courier."
	DisplayTimeForm = "January 2, 2006 - 3:04 PM"
)

type Provider interface {
	ListTracked(ctx context.Context, page int) ([]*models.TrackedItem, error)
	FetchDetails(ctx context.Context, number string) (*models.TrackingRecord, error)
}

type ItemView struct {
	Number     string     `json:"number"`
	Status     string     `json:"status"`
	LastUpdate string     `json:"last_update"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type PlaceView struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type EventView struct {
	Date        string     `json:"date"`
	Time        *time.Time `json:"time,omitempty"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
}

type CarrierView struct {
	Key      int    `json:"key"`
	Name     string `json:"name"`
	Tel      string `json:"tel,omitempty"`
	Homepage string `json:"homepage,omitempty"`
}

type DetailsView struct {
	Number      string      `json:"number"`
	Status      string      `json:"status"`
	SubStatus   string      `json:"sub_status,omitempty"`
	Hint        string      `json:"hint,omitempty"`
	Carrier     CarrierView `json:"carrier"`
	Origin      PlaceView   `json:"origin"`
	Destination PlaceView   `json:"destination"`
	Latest      EventView   `json:"latest"`
	Events      []EventView `json:"events"`
}

type Service struct {
	provider Provider
}

func New(p Provider) *Service {
	return &Service{provider: p}
}

// List: первая страница отслеживаемых номеров в том порядке, в каком их отдал провайдер.
func (s *Service) List(ctx context.Context) ([]ItemView, error) {
	items, err := s.provider.ListTracked(ctx, 1)
	if err != nil {
		slog.Error("list tracked failed", "error", err.Error())
		return nil, errors.Wrap(err, "list tracked")
	}

	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, ItemView{
			Number:     it.Number,
			Status:     orDefault(it.PackageStatus, DefaultStatus),
			LastUpdate: orDefault(it.LatestEventInfo, DefaultUpdate),
			UpdatedAt:  it.LatestEventTime,
		})
	}
	return out, nil
}

// Details возвращает карточку номера. Для незнакомого провайдеру номера возвращает ErrNotFound.
func (s *Service) Details(ctx context.Context, number string) (DetailsView, error) {
	number = models.NormalizeTrackingNumber(number)
	if number == "" {
		return DetailsView{}, errors.Wrap(models.ErrInvalidInput, "tracking number is empty")
	}

	rec, err := s.provider.FetchDetails(ctx, number)
	if err != nil {
		return DetailsView{}, errors.Wrapf(err, "fetch details %s", number)
	}
	if rec == nil {
		return DetailsView{}, errors.Wrapf(models.ErrNotFound, "fetch details %s", number)
	}
	return buildDetails(rec), nil
}

func buildDetails(rec *models.TrackingRecord) DetailsView {
	v := DetailsView{
		Number:      rec.Number,
		Status:      orDefault(rec.Status, DefaultStatus),
		SubStatus:   rec.SubStatus,
		Carrier:     CarrierView{Key: rec.CarrierKey},
		Origin:      place(rec.Origin),
		Destination: place(rec.Destination),
		Latest:      event(rec.LatestEvent),
	}
	if rec.Status == models.TrackingStatusNotFound {
		v.Hint = HintNotFound
	}
	if rec.Provider != nil {
		v.Carrier.Name = rec.Provider.Name
		v.Carrier.Tel = rec.Provider.Tel
		v.Carrier.Homepage = rec.Provider.Homepage
	}
	if v.Carrier.Name == "" && rec.CarrierKey != 0 {
		v.Carrier.Name = models.Courier(rec.CarrierKey).Name()
	}

	events := make([]models.TrackingEvent, len(rec.Events))
	copy(events, rec.Events)
	// Свежие сверху; события без времени уходят в конец, порядок равных сохраняется.
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Time, events[j].Time
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	v.Events = make([]EventView, 0, len(events))
	for i := range events {
		v.Events = append(v.Events, event(&events[i]))
	}
	return v
}

func place(a *models.Address) PlaceView {
	if a == nil {
		return PlaceView{City: DefaultCity}
	}
	return PlaceView{
		City:    orDefault(a.City, DefaultCity),
		State:   a.State,
		Country: a.Country,
	}
}

func event(e *models.TrackingEvent) EventView {
	if e == nil {
		return EventView{Description: DefaultUpdate, Location: DefaultLocation}
	}
	v := EventView{
		Time:        e.Time,
		Description: orDefault(e.Description, DefaultUpdate),
		Location:    orDefault(e.Location, DefaultLocation),
	}
	if e.Time != nil {
		v.Date = e.Time.Format(DisplayTimeForm)
	}
	return v
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
