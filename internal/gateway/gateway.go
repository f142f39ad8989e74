// Package gateway is the thin contract wrapper around the exam
// collaborator's start, submit, list and review endpoints. Response
// field-name variants are normalized here so the rest of the engine only
// sees canonical shapes.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/SAP-F-2025/exam-client/internal/errors"
	"github.com/SAP-F-2025/exam-client/internal/models"
	"github.com/SAP-F-2025/exam-client/internal/utils"
)

// SubmissionGateway is the fixed contract with the exam collaborator.
type SubmissionGateway interface {
	Start(ctx context.Context, examID string) (*models.StartResponse, error)
	Submit(ctx context.Context, submissionID string, req *models.SubmitRequest) (*models.SubmissionResult, error)
	ListSubmissions(ctx context.Context) ([]models.Submission, error)
	Review(ctx context.Context, submissionID string) (*models.Review, error)
}

const defaultReviewTTL = 15 * time.Minute

type httpGateway struct {
	baseURL   string
	client    *http.Client
	logger    utils.Logger
	validator *utils.Validator
	cache     CacheService
	reviewTTL time.Duration
}

type Option func(*httpGateway)

// WithCache enables review-response caching. Reviews are immutable once
// graded, so a short TTL only bounds memory, not staleness.
func WithCache(cache CacheService, ttl time.Duration) Option {
	return func(g *httpGateway) {
		g.cache = cache
		if ttl > 0 {
			g.reviewTTL = ttl
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(g *httpGateway) {
		g.client = client
	}
}

func NewHTTPGateway(baseURL string, logger utils.Logger, validator *utils.Validator, opts ...Option) SubmissionGateway {
	g := &httpGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
		validator: validator,
		reviewTTL: defaultReviewTTL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ===== OPERATIONS =====

func (g *httpGateway) Start(ctx context.Context, examID string) (*models.StartResponse, error) {
	g.logger.InfoContext(ctx, "Starting exam submission", "exam_id", examID)

	var raw rawStartResponse
	path := fmt.Sprintf("/exams/%s/start", examID)
	if err := g.do(ctx, http.MethodPost, path, nil, &raw); err != nil {
		return nil, err
	}

	resp := raw.normalize()
	if resp.SubmissionID == "" {
		return nil, &NetworkError{Op: "start", URL: g.baseURL + path, Err: fmt.Errorf("response carries no submission id")}
	}

	g.logger.InfoContext(ctx, "Exam submission started",
		"exam_id", examID,
		"submission_id", resp.SubmissionID,
		"questions", len(resp.Exam.Questions))
	return resp, nil
}

func (g *httpGateway) Submit(ctx context.Context, submissionID string, req *models.SubmitRequest) (*models.SubmissionResult, error) {
	g.logger.InfoContext(ctx, "Submitting answers",
		"submission_id", submissionID,
		"answers_count", len(req.Answers))

	if err := g.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var raw rawSubmissionResult
	path := fmt.Sprintf("/submissions/%s/submit", submissionID)
	if err := g.do(ctx, http.MethodPost, path, req, &raw); err != nil {
		return nil, err
	}

	result := raw.normalize()
	if result.SubmissionID == "" {
		result.SubmissionID = submissionID
	}

	g.logger.InfoContext(ctx, "Submission graded",
		"submission_id", result.SubmissionID,
		"total_score", result.TotalScore,
		"passed", result.Result.Passed)
	return result, nil
}

func (g *httpGateway) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	var raw []rawSubmission
	if err := g.do(ctx, http.MethodGet, "/my-submissions", nil, &raw); err != nil {
		return nil, err
	}

	submissions := make([]models.Submission, len(raw))
	for i, rs := range raw {
		submissions[i] = rs.normalize()
	}
	return submissions, nil
}

func (g *httpGateway) Review(ctx context.Context, submissionID string) (*models.Review, error) {
	cacheKey := reviewCacheKey(submissionID)
	if g.cache != nil {
		var cached models.Review
		if err := g.cache.Get(ctx, cacheKey, &cached); err == nil {
			g.logger.DebugContext(ctx, "Review served from cache", "submission_id", submissionID)
			return &cached, nil
		}
	}

	var raw rawReview
	path := fmt.Sprintf("/submissions/%s/review", submissionID)
	if err := g.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	review := raw.normalize()
	if review.SubmissionID == "" {
		review.SubmissionID = submissionID
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, cacheKey, review, g.reviewTTL); err != nil {
			g.logger.Warn("Failed to cache review", "submission_id", submissionID, "error", err)
		}
	}
	return review, nil
}

func reviewCacheKey(submissionID string) string {
	return "exam-client:review:" + submissionID
}

// ===== TRANSPORT =====

// errorResponse is the collaborator's error envelope.
type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details []struct {
		Field   string      `json:"field"`
		Message string      `json:"message"`
		Value   interface{} `json:"value,omitempty"`
	} `json:"details,omitempty"`
}

func (g *httpGateway) do(ctx context.Context, method, path string, body, out interface{}) error {
	url := g.baseURL + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return &NetworkError{Op: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &NetworkError{Op: method, URL: url, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		return nil
	}

	return g.mapError(method, url, resp)
}

func (g *httpGateway) mapError(method, url string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var body errorResponse
	_ = json.Unmarshal(raw, &body)
	if body.Message == "" {
		body.Message = strings.TrimSpace(string(raw))
	}
	if body.Message == "" {
		body.Message = resp.Status
	}

	g.logger.Warn("Collaborator request rejected",
		"method", method,
		"url", url,
		"status_code", resp.StatusCode,
		"message", body.Message)

	switch {
	case resp.StatusCode >= 500:
		// Server faults are retryable from the client's perspective.
		return &NetworkError{Op: method, URL: url, Err: fmt.Errorf("server error: %s", body.Message)}

	case resp.StatusCode == http.StatusNotFound:
		if strings.Contains(url, "/exams/") {
			return fmt.Errorf("%w: %s", ErrExamNotFound, body.Message)
		}
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, body.Message)

	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s", ErrSubmissionClosed, body.Message)
	}

	if isClosedWindowMessage(body.Code, body.Message) {
		return fmt.Errorf("%w: %s", ErrSubmissionClosed, body.Message)
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    body.Message,
		Code:       body.Code,
	}
	for _, detail := range body.Details {
		apiErr.Details = append(apiErr.Details, apperrors.ValidationError{
			Field:   detail.Field,
			Message: detail.Message,
			Value:   detail.Value,
		})
	}
	return apiErr
}

func isClosedWindowMessage(code, message string) bool {
	if strings.EqualFold(code, "SUBMISSION_CLOSED") || strings.EqualFold(code, "SUBMISSION_EXPIRED") {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "expired") || strings.Contains(lower, "closed")
}
