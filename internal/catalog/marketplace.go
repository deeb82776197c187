package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/logging"
	"eatdecider/backend/internal/metrics"
)

const (
	MarketplaceSandbox = "sandbox"
	MarketplaceLive    = "live"

	maxMarketplaceBody = 4 << 20
)

var ErrMarketplaceNotConfigured = errors.New("marketplace base url not set for live mode")

type MarketplaceOptions struct {
	Mode          string
	BaseURL       string
	SamplePath    string
	Timeout       time.Duration
	RatePerSecond float64
	Latitude      float64
	Longitude     float64
}

// MarketplaceSource searches an open-network buyer gateway. In sandbox mode
// it maps a recorded search response from disk instead of calling out.
type MarketplaceSource struct {
	opts    MarketplaceOptions
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewMarketplaceSource(opts MarketplaceOptions) *MarketplaceSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "marketplace",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().Str("component", "marketplace").Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &MarketplaceSource{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		breaker: breaker,
	}
}

func (m *MarketplaceSource) Name() string { return "marketplace" }

func (m *MarketplaceSource) Search(ctx context.Context, query string) ([]domain.MenuItem, error) {
	var (
		raw []byte
		err error
	)
	if m.opts.Mode == MarketplaceLive {
		raw, err = m.searchLive(ctx, query)
	} else {
		raw, err = os.ReadFile(m.opts.SamplePath)
	}
	if err != nil {
		return nil, err
	}
	return MapSearchResponse(raw)
}

func (m *MarketplaceSource) searchLive(ctx context.Context, query string) ([]byte, error) {
	if m.opts.BaseURL == "" {
		return nil, ErrMarketplaceNotConfigured
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(m.searchRequest(query))
	if err != nil {
		return nil, err
	}

	return m.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.opts.BaseURL+"/search", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("marketplace search returned %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxMarketplaceBody))
	})
}

type searchRequest struct {
	Context searchContext `json:"context"`
	Message struct {
		Intent searchIntent `json:"intent"`
	} `json:"message"`
}

type searchContext struct {
	Domain        string `json:"domain"`
	Action        string `json:"action"`
	Country       string `json:"country"`
	City          string `json:"city"`
	CoreVersion   string `json:"core_version"`
	TransactionID string `json:"transaction_id"`
	MessageID     string `json:"message_id"`
	TTL           string `json:"ttl"`
}

type searchIntent struct {
	Fulfillment struct {
		Type string `json:"type"`
		End  struct {
			Location struct {
				GPS string `json:"gps"`
			} `json:"location"`
		} `json:"end"`
	} `json:"fulfillment"`
	Item struct {
		Descriptor descriptor `json:"descriptor"`
	} `json:"item"`
}

func (m *MarketplaceSource) searchRequest(query string) searchRequest {
	var req searchRequest
	req.Context = searchContext{
		Domain:        "nic2004:52110",
		Action:        "search",
		Country:       "IND",
		City:          "std:080",
		CoreVersion:   "1.2.0",
		TransactionID: "tx-" + uuid.NewString(),
		MessageID:     "msg-" + uuid.NewString(),
		TTL:           "PT30S",
	}
	req.Message.Intent.Fulfillment.Type = "Delivery"
	req.Message.Intent.Fulfillment.End.Location.GPS = strconv.FormatFloat(m.opts.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(m.opts.Longitude, 'f', -1, 64)
	req.Message.Intent.Item.Descriptor.Name = query
	return req
}

type descriptor struct {
	Name string `json:"name,omitempty"`
}

type searchResponse struct {
	Message struct {
		Catalog struct {
			Providers []provider `json:"providers"`
		} `json:"catalog"`
	} `json:"message"`
}

type provider struct {
	Descriptor *descriptor    `json:"descriptor"`
	Name       string         `json:"name"`
	Items      []providerItem `json:"items"`
}

type providerItem struct {
	Descriptor *descriptor `json:"descriptor"`
	Name       string      `json:"name"`
	Price      *itemPrice  `json:"price"`
}

type itemPrice struct {
	Value        flexFloat `json:"value"`
	MaximumValue flexFloat `json:"maximum_value"`
}

// flexFloat accepts a JSON number or a numeric string; anything else is 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

func displayName(d *descriptor, fallback string, last string) string {
	if d != nil && strings.TrimSpace(d.Name) != "" {
		return strings.TrimSpace(d.Name)
	}
	if strings.TrimSpace(fallback) != "" {
		return strings.TrimSpace(fallback)
	}
	return last
}

// MapSearchResponse turns an on_search payload into catalog items, one per
// provider item, with cuisine guessed from the item and provider names.
func MapSearchResponse(raw []byte) ([]domain.MenuItem, error) {
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	var items []domain.MenuItem
	for _, prov := range resp.Message.Catalog.Providers {
		pname := displayName(prov.Descriptor, prov.Name, "Provider")
		for _, it := range prov.Items {
			name := displayName(it.Descriptor, it.Name, "Item")
			price := 0.0
			if it.Price != nil {
				price = float64(it.Price.Value)
				if price == 0 {
					price = float64(it.Price.MaximumValue)
				}
			}
			cuisine := GuessCuisine(name + " " + pname)
			item, err := Normalize(domain.RawItem{
				Name:       &name,
				Restaurant: &pname,
				Cuisine:    &cuisine,
				Price:      &price,
			}, SourceONDC)
			if err != nil {
				continue
			}
			items = append(items, item)
		}
	}
	return items, nil
}
