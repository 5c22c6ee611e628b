package dashboard

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"kayak-destinations/models"
	"kayak-destinations/services"
	"kayak-destinations/storage"
	"kayak-destinations/utils"
)

// DefaultWeights are the dashboard's slider defaults, in percent.
var DefaultWeights = services.Weights{Weather: 60, Price: 25, Review: 15}

const defaultTopHotels = 10

// Handler serves the read-only dashboard API over one dataset
type Handler struct {
	data   *Dataset
	logger *utils.Logger
}

// NewHandler creates a new Handler
func NewHandler(data *Dataset, logger *utils.Logger) *Handler {
	return &Handler{data: data, logger: logger}
}

type components struct {
	Temp    float64 `json:"temp"`
	Rain    float64 `json:"rain"`
	Weather float64 `json:"weather"`
	Price   float64 `json:"price"`
	Review  float64 `json:"review"`
}

type destinationView struct {
	Rank             int        `json:"rank"`
	City             string     `json:"city"`
	DestinationScore float64    `json:"destination_score"`
	ScoreNorm100     float64    `json:"score_norm_100"`
	Fallback         string     `json:"fallback,omitempty"`
	TempMean         *float64   `json:"temp_mean"`
	RainSum          *float64   `json:"rain_sum"`
	PriceMean        *float64   `json:"price_mean"`
	ScoreMean        *float64   `json:"score_mean"`
	Lat              *float64   `json:"lat"`
	Lon              *float64   `json:"lon"`
	Components       components `json:"components"`
}

type hotelView struct {
	HotelName string   `json:"hotel_name"`
	Score     *float64 `json:"score"`
	PriceEUR  *int     `json:"price_eur"`
	URL       *string  `json:"url"`
}

type weightsView struct {
	Weather float64 `json:"weather"`
	Price   float64 `json:"price"`
	Review  float64 `json:"review"`
}

type listResponse struct {
	Weights      weightsView       `json:"weights"`
	Destinations []destinationView `json:"destinations"`
}

type detailResponse struct {
	Weights     weightsView     `json:"weights"`
	Destination destinationView `json:"destination"`
	Hotels      []hotelView     `json:"hotels"`
}

type compareResponse struct {
	Weights      weightsView       `json:"weights"`
	Destinations []destinationView `json:"destinations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListDestinations handles GET /api/destinations
func (h *Handler) ListDestinations(w http.ResponseWriter, r *http.Request) {
	weights, err := parseWeights(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	views := h.rescore(weights)
	h.writeJSON(w, http.StatusOK, listResponse{Weights: toWeightsView(weights), Destinations: views})
}

// GetDestination handles GET /api/destinations/{city}
func (h *Handler) GetDestination(w http.ResponseWriter, r *http.Request) {
	weights, err := parseWeights(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	top := defaultTopHotels
	if raw := r.URL.Query().Get("top"); raw != "" {
		top, err = strconv.Atoi(raw)
		if err != nil || top < 0 {
			h.writeError(w, http.StatusBadRequest, "top must be a non-negative integer")
			return
		}
	}

	city, err := url.PathUnescape(chi.URLParam(r, "city"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid city")
		return
	}
	view, ok := find(h.rescore(weights), models.CityName(city))
	if !ok {
		h.writeError(w, http.StatusNotFound, "unknown destination: "+city)
		return
	}

	h.writeJSON(w, http.StatusOK, detailResponse{
		Weights:     toWeightsView(weights),
		Destination: view,
		Hotels:      h.data.TopHotels(models.CityName(city), top),
	})
}

// Compare handles GET /api/compare?a=&b=
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	weights, err := parseWeights(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		h.writeError(w, http.StatusBadRequest, "both a and b are required")
		return
	}

	views := h.rescore(weights)
	out := make([]destinationView, 0, 2)
	for _, c := range []string{a, b} {
		v, ok := find(views, models.CityName(c))
		if !ok {
			h.writeError(w, http.StatusNotFound, "unknown destination: "+c)
			return
		}
		out = append(out, v)
	}
	h.writeJSON(w, http.StatusOK, compareResponse{Weights: toWeightsView(weights), Destinations: out})
}

// Map handles GET /map
func (h *Handler) Map(w http.ResponseWriter, r *http.Request) {
	if h.data.MapPath == "" || !storage.Exists(h.data.MapPath) {
		h.writeError(w, http.StatusNotFound, "map has not been rendered")
		return
	}
	http.ServeFile(w, r, h.data.MapPath)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"destinations": len(h.data.Destinations),
		"hotels":       len(h.data.Hotels),
	})
}

// rescore recomputes every destination with weights, then ranks the copies
// and min-max normalizes the scores to 0..100.
func (h *Handler) rescore(weights services.Weights) []destinationView {
	rows := make([]*models.DestinationSummary, 0, len(h.data.Destinations))
	breakdowns := make(map[models.CityName]models.ScoreBreakdown, len(h.data.Destinations))
	fallbacks := make(map[models.CityName]models.ScoreFailure)
	for _, d := range h.data.Destinations {
		row := *d
		b, reason := services.Breakdown(services.InputsOf(&row), weights)
		row.DestinationScore = b.Total
		if reason != models.ScoreOK {
			row.DestinationScore = 0
			fallbacks[row.City] = reason
		}
		breakdowns[row.City] = b
		rows = append(rows, &row)
	}
	services.Rank(rows)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		lo = math.Min(lo, r.DestinationScore)
		hi = math.Max(hi, r.DestinationScore)
	}

	views := make([]destinationView, 0, len(rows))
	for _, r := range rows {
		norm := 100.0
		if hi > lo {
			norm = math.Round(1000*(r.DestinationScore-lo)/(hi-lo)) / 10
		}
		b := breakdowns[r.City]
		views = append(views, destinationView{
			Rank:             r.Rank,
			City:             r.City.String(),
			DestinationScore: r.DestinationScore,
			ScoreNorm100:     norm,
			Fallback:         string(fallbacks[r.City]),
			TempMean:         r.TempMean,
			RainSum:          r.RainSum,
			PriceMean:        r.PriceMean,
			ScoreMean:        r.ScoreMean,
			Lat:              r.Lat,
			Lon:              r.Lon,
			Components: components{
				Temp: b.Temp, Rain: b.Rain, Weather: b.Weather, Price: b.Price, Review: b.Review,
			},
		})
	}
	return views
}

func find(views []destinationView, city models.CityName) (destinationView, bool) {
	for _, v := range views {
		if v.City == city.String() {
			return v, true
		}
	}
	return destinationView{}, false
}

// parseWeights reads w_weather, w_price and w_review (percent), defaulting
// each to DefaultWeights, and normalizes them to sum to 1.
func parseWeights(q url.Values) (services.Weights, error) {
	w := DefaultWeights
	for key, dst := range map[string]*float64{
		"w_weather": &w.Weather,
		"w_price":   &w.Price,
		"w_review":  &w.Review,
	} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return services.Weights{}, fmt.Errorf("invalid %s: %q", key, raw)
		}
		*dst = v
	}
	return w.Normalize()
}

func toWeightsView(w services.Weights) weightsView {
	return weightsView{Weather: w.Weather, Price: w.Price, Review: w.Review}
}

// TopHotels returns the n best reviewed hotels of city, unscored ones last.
func (d *Dataset) TopHotels(city models.CityName, n int) []hotelView {
	var hotels []*models.HotelListing
	for _, h := range d.Hotels {
		if h.City == city {
			hotels = append(hotels, h)
		}
	}
	sort.SliceStable(hotels, func(i, j int) bool {
		a, b := hotels[i].Score, hotels[j].Score
		switch {
		case a == nil || b == nil:
			return a != nil && b == nil
		case *a != *b:
			return *a > *b
		default:
			return hotels[i].HotelName < hotels[j].HotelName
		}
	})
	if n < len(hotels) {
		hotels = hotels[:n]
	}

	out := make([]hotelView, 0, len(hotels))
	for _, h := range hotels {
		out = append(out, hotelView{HotelName: h.HotelName, Score: h.Score, PriceEUR: h.PriceEUR, URL: h.URL})
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
