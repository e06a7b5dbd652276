package loyalty

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ecopoint/temaedori/internal/ocr"
	"github.com/ecopoint/temaedori/internal/receipt"
	"github.com/ecopoint/temaedori/internal/reward"
)

// IDGenerator generates unique IDs for profiles and activities
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// ScannedItem is one classified line item of a scan result. Selected is
// the only field the client is expected to mutate before submitting.
type ScannedItem struct {
	Name                 string          `json:"name"`
	Price                int             `json:"price"`
	Quantity             int             `json:"quantity"`
	Category             reward.Category `json:"category"`
	Selected             bool            `json:"selected"`
	EstimatedReductionKg float64         `json:"estimated_reduction_kg"`
}

// ScanResult is one scan session's working set. It is owned by the
// session that produced it and discarded on confirm or cancel.
type ScanResult struct {
	StoreName   string        `json:"store_name"`
	Date        string        `json:"date"`
	TotalAmount int           `json:"total_amount"`
	Items       []ScannedItem `json:"items"`
	ImagePath   string        `json:"image_path"`
}

// RewardOutcome is the ephemeral reward preview for the currently
// selected subset of a scan result
type RewardOutcome struct {
	TotalPoints      int     `json:"total_points"`
	TotalReductionKg float64 `json:"total_reduction_kg"`
}

// Toggle flips the front-shelf selection of one item
func (r *ScanResult) Toggle(index int) {
	if index < 0 || index >= len(r.Items) {
		return
	}
	r.Items[index].Selected = !r.Items[index].Selected
}

// Outcome recomputes the reward preview from the selected subset. It is
// never cached: every toggle changes the answer.
func (r *ScanResult) Outcome() RewardOutcome {
	return outcomeFor(r.Items)
}

func outcomeFor(items []ScannedItem) RewardOutcome {
	var outcome RewardOutcome
	for _, item := range items {
		if !item.Selected {
			continue
		}
		outcome.TotalPoints += reward.PointValue(item.Price, item.Category)
		outcome.TotalReductionKg += reward.EstimatedReduction(item.Price, item.Category)
	}
	// Guard against float drift when summing per-item rounded values
	outcome.TotalReductionKg = math.Round(outcome.TotalReductionKg*10) / 10
	return outcome
}

// Submission is a confirmed scan sent back by the client. Reward values
// are recomputed server side; only names, prices and selection flags
// are trusted.
type Submission struct {
	UserID       string        `json:"user_id"`
	StoreName    string        `json:"store_name"`
	ReceiptTotal int           `json:"receipt_total"`
	Items        []ScannedItem `json:"items"`
}

// Service handles scan and loyalty operations
type Service struct {
	db          DB
	provider    ocr.Provider
	storage     Storage
	parser      *receipt.Parser
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, provider ocr.Provider, storage Storage, parser *receipt.Parser) *Service {
	return NewServiceWithDeps(db, provider, storage, parser, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, provider ocr.Provider, storage Storage, parser *receipt.Parser, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		provider:    provider,
		storage:     storage,
		parser:      parser,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ScanReceipt stores the uploaded image, runs it through the OCR
// provider and parses the recognized text into a classified scan
// result. Parsing never fails; only the OCR round trip can.
func (s *Service) ScanReceipt(ctx context.Context, filename string, data []byte, contentType string) (*ScanResult, error) {
	id := s.idGenerator.Generate()

	cleanFilename := sanitizeFilename(filename)
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	text, err := s.provider.RecognizeText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to recognize receipt text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// The image is useless without text, clean it up
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	parsed := s.parser.Parse(text)

	items := make([]ScannedItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		category := reward.Classify(item.Name)
		items = append(items, ScannedItem{
			Name:                 item.Name,
			Price:                item.Price,
			Quantity:             item.Quantity,
			Category:             category,
			EstimatedReductionKg: reward.EstimatedReduction(item.Price, category),
		})
	}

	return &ScanResult{
		StoreName:   parsed.StoreName,
		Date:        parsed.Date,
		TotalAmount: parsed.TotalAmount,
		Items:       items,
		ImagePath:   savedPath,
	}, nil
}

// SubmitActivity persists the selected front-shelf picks of a confirmed
// scan as an activity record and applies the reward increments to the
// user's profile, recomputing the rank
func (s *Service) SubmitActivity(sub Submission) (*Activity, *Profile, error) {
	selected := make([]ScannedItem, 0, len(sub.Items))
	for _, item := range sub.Items {
		if item.Selected {
			selected = append(selected, item)
		}
	}
	if len(selected) == 0 {
		return nil, nil, ErrEmptySelection
	}

	profile, err := s.db.GetProfile(sub.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("getting profile: %w", err)
	}

	outcome := outcomeFor(selected)
	now := s.timeSource.Now()

	names := make([]string, 0, len(selected))
	for _, item := range selected {
		names = append(names, item.Name)
	}

	activity := &Activity{
		ID:           s.idGenerator.Generate(),
		UserID:       sub.UserID,
		StoreName:    sub.StoreName,
		Items:        names,
		Points:       outcome.TotalPoints,
		ReductionKg:  outcome.TotalReductionKg,
		ReceiptTotal: sub.ReceiptTotal,
		CreatedAt:    now,
	}
	if err := s.db.SaveActivity(activity); err != nil {
		return nil, nil, fmt.Errorf("saving activity: %w", err)
	}

	profile.TotalPoints += outcome.TotalPoints
	profile.TotalReductionKg = math.Round((profile.TotalReductionKg+outcome.TotalReductionKg)*10) / 10
	profile.Rank = reward.RankForPoints(profile.TotalPoints)
	profile.UpdatedAt = now
	if err := s.db.SaveProfile(profile); err != nil {
		return nil, nil, fmt.Errorf("updating profile: %w", err)
	}

	slog.Info("Activity recorded",
		"user_id", sub.UserID,
		"points", outcome.TotalPoints,
		"reduction_kg", outcome.TotalReductionKg,
		"rank", profile.Rank,
	)

	return activity, profile, nil
}

// CreateProfile creates a new member profile at the lowest rank
func (s *Service) CreateProfile(username, displayName string) (*Profile, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	now := s.timeSource.Now()
	profile := &Profile{
		ID:          s.idGenerator.Generate(),
		Username:    username,
		DisplayName: displayName,
		Rank:        reward.RankForPoints(0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.SaveProfile(profile); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}
	return profile, nil
}

// GetProfile retrieves a profile by ID
func (s *Service) GetProfile(id string) (*Profile, error) {
	profile, err := s.db.GetProfile(id)
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return profile, nil
}

// ListActivities returns a user's activity history, newest first
func (s *Service) ListActivities(userID string) ([]*Activity, error) {
	activities, err := s.db.ListActivities(userID)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return activities, nil
}

// GetReceiptImage retrieves the stored image for a scan
func (s *Service) GetReceiptImage(path string) ([]byte, error) {
	data, err := s.storage.Get(path)
	if err != nil {
		return nil, fmt.Errorf("getting receipt image: %w", err)
	}
	return data, nil
}
