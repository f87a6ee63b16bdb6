package claims

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	prommetrics "github.com/aimd54/mystery-box/internal/metrics"
	"github.com/aimd54/mystery-box/internal/models"
)

// Filter selects which claims List returns.
type Filter string

// Filter values.
const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterOpened    Filter = "opened"
	FilterDelivered Filter = "delivered"
)

// ParseFilter validates a filter query value. Empty means all.
func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterOpened, FilterDelivered:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", ErrValidation, raw)
	}
}

func (f Filter) statuses() []models.ClaimStatus {
	switch f {
	case FilterPending:
		return []models.ClaimStatus{models.ClaimStatusPending}
	case FilterOpened:
		return []models.ClaimStatus{models.ClaimStatusOpened}
	case FilterDelivered:
		return []models.ClaimStatus{models.ClaimStatusDelivered}
	default:
		return nil
	}
}

// ClaimView is the denormalized listing row.
type ClaimView struct {
	ID              string             `json:"id"`
	Status          models.ClaimStatus `json:"status"`
	UserID          string             `json:"userId"`
	UserName        string             `json:"userName"`
	UserEmail       string             `json:"userEmail"`
	PaymentID       *string            `json:"paymentId"`
	PaymentAmount   *int64             `json:"paymentAmount"`
	PaymentCurrency string             `json:"paymentCurrency,omitempty"`
	PrizeName       string             `json:"prizeName,omitempty"`
	PrizeValue      *int64             `json:"prizeValue"`
	PrizeGlow       string             `json:"prizeGlow,omitempty"`
	BoxNumber       *int               `json:"boxNumber"`
	Notes           string             `json:"notes"`
	OpenedBy        *string            `json:"openedBy"`
	CreatedAt       time.Time          `json:"createdAt"`
	OpenedAt        *time.Time         `json:"openedAt"`
	DeliveredAt     *time.Time         `json:"deliveredAt"`
}

// NewClaimView flattens a claim with its preloaded relations.
func NewClaimView(c *models.PrizeClaim) ClaimView {
	v := ClaimView{
		ID:          c.ID,
		Status:      c.Status,
		UserID:      c.UserID,
		PaymentID:   c.PaymentID,
		BoxNumber:   c.BoxNumber,
		Notes:       c.Notes,
		OpenedBy:    c.OpenedBy,
		CreatedAt:   c.CreatedAt,
		OpenedAt:    c.OpenedAt,
		DeliveredAt: c.DeliveredAt,
	}
	if c.User != nil {
		v.UserName = c.User.Name
		v.UserEmail = c.User.Email
	}
	if c.Payment != nil {
		amount := c.Payment.Amount
		v.PaymentAmount = &amount
		v.PaymentCurrency = c.Payment.Currency
	}
	if c.PrizeType != nil {
		value := c.PrizeType.Value
		v.PrizeName = c.PrizeType.Name
		v.PrizeValue = &value
		v.PrizeGlow = c.PrizeType.Glow
	}
	return v
}

// List returns claims matching the filter, newest first.
func (s *Service) List(filter Filter) ([]ClaimView, error) {
	claims, err := s.claims.ListByStatus(filter.statuses()...)
	if err != nil {
		return nil, err
	}

	views := make([]ClaimView, 0, len(claims))
	for i := range claims {
		views = append(views, NewClaimView(&claims[i]))
	}
	return views, nil
}

// BoxView is one opened box in the board's shape.
type BoxView struct {
	Prize  string `json:"prize"`
	Value  int64  `json:"value"`
	Opened bool   `json:"opened"`
	Glow   string `json:"glow"`
}

// Matches "box #N" anywhere, or a bare number only inside "(Box N)".
var legacyBoxPattern = regexp.MustCompile(`(?i)\bbox #(\d+)\b|\(box (\d+)\)`)

// legacyBoxNumber recovers a box number from free-text notes written before
// the box_number column existed.
func legacyBoxNumber(notes string) (int, bool) {
	m := legacyBoxPattern.FindStringSubmatch(notes)
	if m == nil {
		return 0, false
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// OpenedBoxes keys OPENED claims by box number. The structured column wins,
// then a `box #N` pattern in notes, then the 1-based position in opened_at
// order. Positional keys never displace a known box.
func (s *Service) OpenedBoxes() (map[int]BoxView, int, error) {
	claims, err := s.claims.ListOpened()
	if err != nil {
		return nil, 0, err
	}

	boxes := make(map[int]BoxView, len(claims))
	var unplaced []int

	for i := range claims {
		c := &claims[i]
		if c.PrizeType == nil {
			continue
		}
		var (
			n  int
			ok bool
		)
		if c.BoxNumber != nil {
			n, ok = *c.BoxNumber, true
		} else {
			n, ok = legacyBoxNumber(c.Notes)
		}
		if !ok {
			unplaced = append(unplaced, i)
			continue
		}
		boxes[n] = boxView(c.PrizeType)
	}

	for _, i := range unplaced {
		n := i + 1
		if _, taken := boxes[n]; taken {
			continue
		}
		boxes[n] = boxView(claims[i].PrizeType)
	}

	return boxes, len(claims), nil
}

func boxView(pt *models.PrizeType) BoxView {
	return BoxView{Prize: pt.Name, Value: pt.Value, Opened: true, Glow: pt.Glow}
}

// BoardBox is one slot on the server-side board. Unopened boxes only carry
// their number.
type BoardBox struct {
	Number  int    `json:"number"`
	Opened  bool   `json:"opened"`
	Prize   string `json:"prize,omitempty"`
	Value   int64  `json:"value,omitempty"`
	Glow    string `json:"glow,omitempty"`
	ClaimID string `json:"claimId,omitempty"`
}

// Board is the full box grid.
type Board struct {
	Total  int        `json:"total"`
	Opened int        `json:"opened"`
	Boxes  []BoardBox `json:"boxes"`
}

// Board builds the grid from claims that carry a structured box number.
func (s *Service) Board() (*Board, error) {
	total := s.engine.Catalog().TotalBoxes()
	boxed, err := s.claims.ListWithBoxNumber()
	if err != nil {
		return nil, err
	}

	board := &Board{Total: total, Boxes: make([]BoardBox, total)}
	for i := range board.Boxes {
		board.Boxes[i].Number = i + 1
	}

	for _, c := range boxed {
		n := *c.BoxNumber
		if n < 1 || n > total || board.Boxes[n-1].Opened {
			continue
		}
		box := &board.Boxes[n-1]
		box.Opened = true
		box.ClaimID = c.ID
		if c.PrizeType != nil {
			box.Prize = c.PrizeType.Name
			box.Value = c.PrizeType.Value
			box.Glow = c.PrizeType.Glow
		}
		board.Opened++
	}

	return board, nil
}

// PendingUser is someone waiting on an admin: a pending claim or a payment
// that no claim references.
type PendingUser struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PaymentID     *string   `json:"paymentId"`
	PaymentAmount int64     `json:"paymentAmount"`
	Currency      string    `json:"currency,omitempty"`
	ClaimID       *string   `json:"claimId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PendingUsers lists everyone awaiting an opening, oldest first.
func (s *Service) PendingUsers() ([]PendingUser, error) {
	pending, err := s.claims.ListPending()
	if err != nil {
		return nil, err
	}
	unclaimed, err := s.payments.ListUnclaimed()
	if err != nil {
		return nil, err
	}

	out := make([]PendingUser, 0, len(pending)+len(unclaimed))
	for i := range pending {
		c := &pending[i]
		id := c.ID
		p := PendingUser{
			ID:        c.UserID,
			PaymentID: c.PaymentID,
			ClaimID:   &id,
			CreatedAt: c.CreatedAt,
		}
		if c.User != nil {
			p.Name = c.User.Name
			p.Email = c.User.Email
		}
		if c.Payment != nil {
			p.PaymentAmount = c.Payment.Amount
			p.Currency = c.Payment.Currency
		}
		out = append(out, p)
	}

	for i := range unclaimed {
		pay := &unclaimed[i]
		paymentID := pay.ID
		p := PendingUser{
			ID:            pay.UserID,
			PaymentID:     &paymentID,
			PaymentAmount: pay.Amount,
			Currency:      pay.Currency,
			CreatedAt:     pay.CreatedAt,
		}
		if pay.User != nil {
			p.Name = pay.User.Name
			p.Email = pay.User.Email
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Summary is the daily activity digest.
type Summary struct {
	Pending        int64 `json:"pending"`
	OpenedToday    int64 `json:"openedToday"`
	DeliveredToday int64 `json:"deliveredToday"`
}

// DailySummary counts pending claims and the openings and deliveries of the
// calendar day containing day, in day's location.
func (s *Service) DailySummary(day time.Time) (*Summary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	pending, err := s.claims.CountByStatus(models.ClaimStatusPending)
	if err != nil {
		return nil, err
	}
	opened, err := s.claims.CountOpenedBetween(start, end)
	if err != nil {
		return nil, err
	}
	delivered, err := s.claims.CountDeliveredBetween(start, end)
	if err != nil {
		return nil, err
	}

	return &Summary{Pending: pending, OpenedToday: opened, DeliveredToday: delivered}, nil
}

// RefreshStatusGauges publishes the current claim count per status.
func (s *Service) RefreshStatusGauges() error {
	for _, status := range []models.ClaimStatus{
		models.ClaimStatusPending,
		models.ClaimStatusOpened,
		models.ClaimStatusDelivered,
		models.ClaimStatusCancelled,
	} {
		count, err := s.claims.CountByStatus(status)
		if err != nil {
			return err
		}
		prommetrics.SetClaimsByStatus(string(status), count)
	}
	return nil
}
