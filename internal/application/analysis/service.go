package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bryanwahyu/scamguard/internal/application"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/infra/ai/prompt"
)

const previewLimit = 200

// Service implements the analysis use-case as a strict linear pipeline:
// every stage either passes its output forward or fails with a stage-specific
// error kind, carrying the stage trail collected so far.
// Repo and Artifacts are optional audit sinks; a nil value disables them.
type Service struct {
	Model     domain.Client
	Repo      domain.Repository
	Artifacts domain.ArtifactStore
	Clock     application.Clock
}

// rawReport tolerates the loose typing models produce (e.g. a float score)
// before the typed Report is constructed.
type rawReport struct {
	Score     float64 `json:"score"`
	RiskLevel string  `json:"risk_level"`
	Indicators []struct {
		Title       string `json:"title"`
		Explanation string `json:"explanation"`
		Severity    string `json:"severity"`
	} `json:"indicators"`
	Summary string `json:"summary"`
}

// Analyze runs the full pipeline for one base64 image payload. userID is
// recorded on the audit row when persistence is configured; it plays no part
// in the analysis itself.
func (s *Service) Analyze(ctx context.Context, imageBase64, userID string) (*domain.Report, error) {
	var trail []domain.StageEvent
	step := func(stage, outcome string) {
		trail = append(trail, domain.StageEvent{Stage: stage, Outcome: outcome})
	}
	fail := func(kind domain.Kind, details string, err error) error {
		step(stageName(kind), "failed")
		return &domain.Error{Kind: kind, Details: details, Trail: trail, Err: err}
	}

	// 1. input presence
	if strings.TrimSpace(imageBase64) == "" {
		return nil, fail(domain.KindInvalidInput,
			"The image data is empty or invalid. Please try uploading a different image.", nil)
	}
	step("image payload", "present")

	// 2. model credential
	if s.Model == nil {
		return nil, fail(domain.KindConfiguration,
			"AI service is not properly configured. Please contact support.", domain.ErrNotConfigured)
	}
	if err := s.Model.Ready(); err != nil {
		return nil, fail(domain.KindConfiguration,
			"AI service is not properly configured. Please contact support.", err)
	}
	step("model credential", "configured")

	// 4. payload decode (stage 3, client init, happens inside the model call)
	img, mimeHint, err := decodeImage(imageBase64)
	if err != nil {
		return nil, fail(domain.KindImageDecode,
			fmt.Sprintf("Failed to process the image: %v. Make sure you're uploading a valid image file.", err), err)
	}
	step("image decode", fmt.Sprintf("%d bytes", len(img)))

	// 5. prompt construction — a fixed template, never derived from user input
	fullPrompt := prompt.GetSystemPrompt() + "\n\n" + prompt.GetUserPrompt()
	mime := mimeHint
	if mime == "" {
		mime = "image/jpeg"
	}
	step("prompt", "prepared")

	// 6. model invocation
	raw, err := s.Model.Analyze(ctx, fullPrompt, img, mime)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotConfigured):
			return nil, fail(domain.KindConfiguration,
				"AI service is not properly configured. Please contact support.", err)
		case errors.Is(err, domain.ErrInit):
			return nil, fail(domain.KindServiceInit,
				fmt.Sprintf("Could not connect to AI service: %v", err), err)
		}
		return nil, fail(domain.KindUpstream,
			fmt.Sprintf("The AI service encountered an error: %v. This might be a temporary issue - please try again.", err), err)
	}
	step("model invocation", fmt.Sprintf("reply received (%d chars)", len(raw)))

	// 7.+8. unwrap fences, decode JSON
	cleaned := stripCodeFences(raw)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fail(domain.KindResponseParse,
			fmt.Sprintf("Failed to parse AI response. The AI returned invalid data format: %v (preview: %s)", err, preview(cleaned)), err)
	}
	step("response parse", "ok")

	// 9. schema validation
	var missing []string
	for _, f := range []string{"score", "risk_level", "indicators", "summary"} {
		if _, ok := fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fail(domain.KindIncompleteResponse,
			"AI response is missing required information: "+strings.Join(missing, ", "), nil)
	}
	var rr rawReport
	if err := json.Unmarshal([]byte(cleaned), &rr); err != nil {
		return nil, fail(domain.KindResponseShape,
			fmt.Sprintf("Failed to format the analysis results: %v", err), err)
	}
	report, err := buildReport(rr)
	if err != nil {
		return nil, fail(domain.KindResponseShape,
			fmt.Sprintf("Failed to format the analysis results: %v", err), err)
	}
	step("result", "validated")

	// success path: trail is discarded, result archived best-effort
	s.archive(ctx, report, img, mime, userID)

	return report, nil
}

func buildReport(rr rawReport) (*domain.Report, error) {
	level := domain.RiskLevel(strings.ToLower(strings.TrimSpace(rr.RiskLevel)))
	if !level.Valid() {
		return nil, fmt.Errorf("invalid risk_level %q", rr.RiskLevel)
	}
	report := &domain.Report{
		Score:      int(rr.Score),
		RiskLevel:  level,
		Indicators: make([]domain.Indicator, 0, len(rr.Indicators)),
		Summary:    rr.Summary,
	}
	for i, in := range rr.Indicators {
		sev := domain.Severity(strings.ToLower(strings.TrimSpace(in.Severity)))
		if !sev.Valid() {
			return nil, fmt.Errorf("indicator %d has invalid severity %q", i, in.Severity)
		}
		if strings.TrimSpace(in.Title) == "" {
			return nil, fmt.Errorf("indicator %d is missing a title", i)
		}
		report.Indicators = append(report.Indicators, domain.Indicator{
			Title:       in.Title,
			Explanation: in.Explanation,
			Severity:    sev,
		})
	}
	return report, nil
}

// archive stores the image and the result row when the sinks are configured.
// Failures are logged, never surfaced: the caller already has a valid result.
func (s *Service) archive(ctx context.Context, report *domain.Report, img []byte, mime, userID string) {
	if s.Repo == nil && s.Artifacts == nil {
		return
	}
	id := uuid.New().String()

	imageURL := ""
	if s.Artifacts != nil {
		key := fmt.Sprintf("analyses/%s%s", id, extForMIME(mime))
		url, err := s.Artifacts.UploadBytes(ctx, key, img, mime)
		if err != nil {
			log.Printf("analysis archive upload failed id=%s: %v", id, err)
		} else {
			imageURL = url
		}
	}
	if s.Repo != nil {
		now := time.Now()
		if s.Clock != nil {
			now = s.Clock.Now()
		}
		b, _ := json.Marshal(report)
		rec := &domain.Record{
			ID:        domain.RecordID(id),
			UserID:    userID,
			ImageURL:  imageURL,
			Result:    string(b),
			Score:     report.Score,
			RiskLevel: report.RiskLevel,
			CreatedAt: now,
		}
		if err := s.Repo.Save(ctx, rec); err != nil {
			log.Printf("analysis record save failed id=%s: %v", id, err)
		}
	}
}

// History returns stored analyses for a user, newest first.
func (s *Service) History(ctx context.Context, userID string, page, pageSize int) ([]*domain.Record, error) {
	if s.Repo == nil {
		return nil, nil
	}
	return s.Repo.Paginate(ctx, userID, page, pageSize)
}

// decodeImage decodes a base64 payload. data: URLs are accepted and yield a
// MIME hint from the prefix.
func decodeImage(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hintMIME string
	if strings.HasPrefix(s, "data:") {
		// data:<mime>;base64,<payload>
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hintMIME = meta[:semi]
			} else {
				hintMIME = meta
			}
			s = s[idx+1:]
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, hintMIME, nil
	} else if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return b2, hintMIME, nil
	} else {
		return nil, "", err
	}
}

// stripCodeFences removes an optional ``` / ```json wrapper the model may put
// around its JSON reply.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// preview truncates long replies for diagnostics, backing up to a rune
// boundary so a multi-byte character is never split.
func preview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func extForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ".jpg"
}

func stageName(kind domain.Kind) string {
	switch kind {
	case domain.KindInvalidInput:
		return "image payload"
	case domain.KindConfiguration:
		return "model credential"
	case domain.KindServiceInit:
		return "model init"
	case domain.KindImageDecode:
		return "image decode"
	case domain.KindUpstream:
		return "model invocation"
	case domain.KindResponseParse:
		return "response parse"
	case domain.KindIncompleteResponse, domain.KindResponseShape:
		return "schema check"
	}
	return "pipeline"
}
