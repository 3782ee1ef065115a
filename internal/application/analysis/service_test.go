package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

const validReply = `{
	"score": 85,
	"risk_level": "scam",
	"summary": "This looks like a phishing email.",
	"indicators": [
		{"title": "Urgent language", "explanation": "It pressures you to act now.", "severity": "high"},
		{"title": "Suspicious link", "explanation": "The link does not match the sender.", "severity": "medium"}
	]
}`

type fakeModel struct {
	ready     error
	reply     string
	err       error
	gotPrompt string
	gotMIME   string
	gotImage  []byte
	calls     int
}

func (f *fakeModel) Ready() error { return f.ready }

func (f *fakeModel) Analyze(_ context.Context, prompt string, image []byte, mime string) (string, error) {
	f.calls++
	f.gotPrompt = prompt
	f.gotImage = image
	f.gotMIME = mime
	return f.reply, f.err
}

type fakeRepo struct {
	saved []*domain.Record
}

func (f *fakeRepo) Save(_ context.Context, rec *domain.Record) error {
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeRepo) Paginate(_ context.Context, userID string, page, pageSize int) ([]*domain.Record, error) {
	return f.saved, nil
}

func validPayload() string {
	return base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes"))
}

func pipelineErr(t *testing.T, err error) *domain.Error {
	t.Helper()
	var perr *domain.Error
	require.ErrorAs(t, err, &perr)
	return perr
}

func TestAnalyze_Success(t *testing.T) {
	model := &fakeModel{reply: validReply}
	svc := &Service{Model: model}

	report, err := svc.Analyze(context.Background(), validPayload(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 85, report.Score)
	assert.Equal(t, domain.RiskScam, report.RiskLevel)
	assert.Len(t, report.Indicators, 2)
	assert.Equal(t, domain.SeverityHigh, report.Indicators[0].Severity)
	assert.Equal(t, []byte("fake-jpeg-bytes"), model.gotImage)
	assert.Equal(t, "image/jpeg", model.gotMIME)
	assert.Contains(t, model.gotPrompt, "scam detection expert")
}

func TestAnalyze_FencedReplyMatchesUnfenced(t *testing.T) {
	plain := &fakeModel{reply: validReply}
	fenced := &fakeModel{reply: "```json\n" + validReply + "\n```"}

	a, err := (&Service{Model: plain}).Analyze(context.Background(), validPayload(), "")
	require.NoError(t, err)
	b, err := (&Service{Model: fenced}).Analyze(context.Background(), validPayload(), "")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestAnalyze_EmptyPayload(t *testing.T) {
	svc := &Service{Model: &fakeModel{reply: validReply}}

	_, err := svc.Analyze(context.Background(), "   ", "")
	perr := pipelineErr(t, err)
	assert.Equal(t, domain.KindInvalidInput, perr.Kind)
}

func TestAnalyze_NotConfigured(t *testing.T) {
	svc := &Service{Model: &fakeModel{ready: domain.ErrNotConfigured}}

	_, err := svc.Analyze(context.Background(), validPayload(), "")
	perr := pipelineErr(t, err)
	assert.Equal(t, domain.KindConfiguration, perr.Kind)
	// trail proves the payload stage passed before credentials failed
	require.NotEmpty(t, perr.Trail)
	assert.Equal(t, "image payload", perr.Trail[0].Stage)
}

func TestAnalyze_BadBase64(t *testing.T) {
	model := &fakeModel{reply: validReply}
	svc := &Service{Model: model}

	_, err := svc.Analyze(context.Background(), "invalid_base64_data!!!", "")
	perr := pipelineErr(t, err)
	assert.Equal(t, domain.KindImageDecode, perr.Kind)
	assert.Zero(t, model.calls, "model must not be invoked for undecodable input")
}

func TestAnalyze_DataURLPayload(t *testing.T) {
	model := &fakeModel{reply: validReply}
	svc := &Service{Model: model}

	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	_, err := svc.Analyze(context.Background(), payload, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", model.gotMIME)
	assert.Equal(t, []byte("png-bytes"), model.gotImage)
}

func TestAnalyze_UpstreamFailure(t *testing.T) {
	svc := &Service{Model: &fakeModel{err: errors.New("connection reset")}}

	_, err := svc.Analyze(context.Background(), validPayload(), "")
	perr := pipelineErr(t, err)
	assert.Equal(t, domain.KindUpstream, perr.Kind)
}

func TestAnalyze_InitFailure(t *testing.T) {
	svc := &Service{Model: &fakeModel{err: domain.ErrInit}}

	_, err := svc.Analyze(context.Background(), validPayload(), "")
	perr := pipelineErr(t, err)
	assert.Equal(t, domain.KindServiceInit, perr.Kind)
}

func TestAnalyze_MalformedJSON(t *testing.T) {
	svc := &Service{Model: &fakeModel{reply: "I think this is probably a scam."}}

	_, err := svc.Analyze(context.Background(), validPayload(), "")
	perr := pipelineErr(t, err)
	assert.Equal(t, domain.KindResponseParse, perr.Kind)
	assert.Contains(t, perr.Details, "preview")
}

func TestAnalyze_MissingFields(t *testing.T) {
	svc := &Service{Model: &fakeModel{reply: `{"score": 10, "summary": "fine"}`}}

	_, err := svc.Analyze(context.Background(), validPayload(), "")
	perr := pipelineErr(t, err)
	assert.Equal(t, domain.KindIncompleteResponse, perr.Kind)
	assert.Contains(t, perr.Details, "risk_level")
	assert.Contains(t, perr.Details, "indicators")
}

func TestAnalyze_BadIndicatorSeverity(t *testing.T) {
	reply := `{"score": 50, "risk_level": "suspicious", "summary": "meh",
		"indicators": [{"title": "x", "explanation": "y", "severity": "catastrophic"}]}`
	svc := &Service{Model: &fakeModel{reply: reply}}

	_, err := svc.Analyze(context.Background(), validPayload(), "")
	perr := pipelineErr(t, err)
	assert.Equal(t, domain.KindResponseShape, perr.Kind)
}

func TestAnalyze_BadRiskLevel(t *testing.T) {
	reply := `{"score": 50, "risk_level": "dangerous", "summary": "meh", "indicators": []}`
	svc := &Service{Model: &fakeModel{reply: reply}}

	_, err := svc.Analyze(context.Background(), validPayload(), "")
	perr := pipelineErr(t, err)
	assert.Equal(t, domain.KindResponseShape, perr.Kind)
}

func TestAnalyze_ErrorCarriesTrailLogs(t *testing.T) {
	svc := &Service{Model: &fakeModel{reply: "not json"}}

	_, err := svc.Analyze(context.Background(), validPayload(), "")
	perr := pipelineErr(t, err)

	logs := perr.Logs()
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0], "image payload")
	assert.Contains(t, logs[len(logs)-1], "failed")
}

func TestAnalyze_SavesAuditRecord(t *testing.T) {
	repo := &fakeRepo{}
	svc := &Service{Model: &fakeModel{reply: validReply}, Repo: repo}

	_, err := svc.Analyze(context.Background(), validPayload(), "google:42")
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	rec := repo.saved[0]
	assert.Equal(t, "google:42", rec.UserID)
	assert.Equal(t, 85, rec.Score)
	assert.Equal(t, domain.RiskScam, rec.RiskLevel)
	assert.Contains(t, rec.Result, "phishing")
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestPreview(t *testing.T) {
	short := "tiny reply"
	assert.Equal(t, short, preview(short))

	// 3-byte runes ensure the byte limit lands mid-rune
	long := strings.Repeat("€", 100)
	got := preview(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), previewLimit+len("..."))
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		`{"a":1}`:                 `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, stripCodeFences(in))
	}
}
