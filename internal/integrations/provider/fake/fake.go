package fake

import (
	"context"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"github.com/BearBump/ParcelBox/internal/integrations/provider"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/pkg/errors"
)

// Коды отказа как у 17track.
const (
	CodeAlreadyRegistered = -18019901
	CodeNotRegistered     = -18019902
)

// detectable: перевозчики, между которыми "автоопределение" выбирает по хэшу номера.
var detectable = []models.Courier{
	models.CourierFedEx,
	models.CourierDHL,
	models.CourierUSPS,
	models.CourierRoyalMail,
}

// Client: детерминированный провайдер в памяти. Новые номера без статуса до следующего опроса.
type Client struct {
	mu      sync.Mutex
	records map[string]*models.TrackingRecord
}

func New() *Client {
	return &Client{records: map[string]*models.TrackingRecord{}}
}

// Detect повторяет автоопределение: номера UPS начинаются с "1Z", остальное по FNV.
func Detect(number string) models.Courier {
	if strings.HasPrefix(strings.ToUpper(number), "1Z") {
		return models.CourierUPS
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(number))
	return detectable[h.Sum32()%uint32(len(detectable))]
}

func (c *Client) QueryExisting(ctx context.Context, number string) (*models.TrackingRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[number]
	if !ok {
		return nil, false, nil
	}
	cp := *rec
	return &cp, true, nil
}

func (c *Client) Register(ctx context.Context, number string, courier models.Courier) (provider.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[number]; ok {
		return provider.Result{Code: CodeAlreadyRegistered}, nil
	}
	if courier.IsAutoDetect() {
		courier = Detect(number)
	}
	c.records[number] = &models.TrackingRecord{
		Number:     number,
		CarrierKey: int(courier),
		Provider:   &models.ProviderInfo{Name: courier.Name()},
	}
	return provider.Result{OK: true}, nil
}

func (c *Client) FetchDetails(ctx context.Context, number string) (*models.TrackingRecord, error) {
	rec, ok, _ := c.QueryExisting(ctx, number)
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "fake provider: %s", number)
	}
	return rec, nil
}

func (c *Client) Remove(ctx context.Context, number string) (provider.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[number]; !ok {
		return provider.Result{Code: CodeNotRegistered}, nil
	}
	delete(c.records, number)
	return provider.Result{OK: true}, nil
}

func (c *Client) ListTracked(ctx context.Context, page int) ([]*models.TrackedItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.TrackedItem, 0, len(c.records))
	for _, r := range c.records {
		it := &models.TrackedItem{Number: r.Number, PackageStatus: r.Status}
		if r.LatestEvent != nil {
			it.LatestEventInfo = r.LatestEvent.Description
			it.LatestEventTime = r.LatestEvent.Time
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Update имитирует опрос перевозчика провайдером.
func (c *Client) Update(number, status string, ev *models.TrackingEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[number]
	if !ok {
		return false
	}
	rec.Status = status
	if ev != nil {
		rec.LatestEvent = ev
		rec.Events = append(rec.Events, *ev)
	}
	return true
}
