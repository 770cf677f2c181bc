package backendclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/classification"
	"github.com/example/pneumoscan/internal/logging"
)

// DefaultPositiveMarker selects the positive branch when found in a prediction.
const DefaultPositiveMarker = "Pneumonia"

const (
	predictPath   = "/predict"
	checkModePath = "/check-mode"
	maxBodyBytes  = 1 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	PositiveMarker string
	// SigningSecret enables an HS256 bearer token on every request.
	SigningSecret string
	ClientID      string
	Logger        *zap.Logger
}

// Client talks to the classification backend over HTTP.
type Client struct {
	baseURL  string
	http     *http.Client
	marker   string
	secret   []byte
	clientID string
	logger   *zap.Logger
}

type predictResponse struct {
	Prediction    string   `json:"prediction"`
	Confidence    string   `json:"confidence"`
	ConfidenceRaw *float64 `json:"confidence_raw"`
	Filename      string   `json:"filename"`
	Status        string   `json:"status"`
	Error         *string  `json:"error"`
}

type modeResponse struct {
	DemoMode *bool `json:"demo_mode"`
}

// New returns a ready-to-use backend client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	marker := opts.PositiveMarker
	if marker == "" {
		marker = DefaultPositiveMarker
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     httpClient,
		marker:   marker,
		secret:   []byte(opts.SigningSecret),
		clientID: opts.ClientID,
		logger:   logger.Named("backend_client"),
	}
}

// Classify uploads the file as multipart field "file" and normalizes the reply.
func (c *Client) Classify(ctx context.Context, file classification.SelectedFile) (classification.Result, error) {
	if c.baseURL == "" {
		return classification.Result{}, logging.NewOperationError("backendclient.classify", "", ErrNoBackend)
	}

	body, contentType, err := buildUpload(file)
	if err != nil {
		return classification.Result{}, logging.NewOperationError("backendclient.build_upload", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, body)
	if err != nil {
		return classification.Result{}, logging.NewOperationError("backendclient.classify", "", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(req); err != nil {
		return classification.Result{}, logging.NewOperationError("backendclient.sign_token", "", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("predict request failed", zap.Error(err), zap.String("filename", file.Name))
		return classification.Result{}, &TransportError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return classification.Result{}, &TransportError{StatusCode: resp.StatusCode, Message: transportMessage(err), Err: err}
	}

	var payload predictResponse
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && payload.Error != nil && *payload.Error != "" {
			return classification.Result{}, &ServerError{StatusCode: resp.StatusCode, Message: *payload.Error}
		}
		c.logger.Warn("predict returned non-success status", zap.Int("status", resp.StatusCode))
		return classification.Result{}, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    GenericFailureMessage,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if decodeErr != nil {
		return classification.Result{}, &TransportError{StatusCode: resp.StatusCode, Message: GenericFailureMessage, Err: decodeErr}
	}
	if payload.Error != nil {
		return classification.Result{}, &ServerError{StatusCode: resp.StatusCode, Message: *payload.Error}
	}

	return c.normalize(payload), nil
}

// DemoMode queries the mode-discovery endpoint. It reports an error for any
// response that does not carry a boolean demo flag.
func (c *Client) DemoMode(ctx context.Context) (bool, error) {
	if c.baseURL == "" {
		return false, ErrNoBackend
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+checkModePath, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(req); err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("check-mode returned status %d", resp.StatusCode)
	}

	var payload modeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return false, fmt.Errorf("decode check-mode response: %w", err)
	}
	if payload.DemoMode == nil {
		return false, errors.New("check-mode response missing demo_mode")
	}
	return *payload.DemoMode, nil
}

func (c *Client) normalize(payload predictResponse) classification.Result {
	// Substring match on the prediction text is the backend's contract.
	label := classification.Negative
	if strings.Contains(payload.Prediction, c.marker) {
		label = classification.Positive
	}

	var confidence float64
	if payload.ConfidenceRaw != nil && *payload.ConfidenceRaw != 0 {
		confidence = *payload.ConfidenceRaw
	} else {
		confidence = ParseLeadingFloat(payload.Confidence)
	}

	return classification.Result{
		Label:             label,
		Prediction:        payload.Prediction,
		ConfidencePercent: classification.ClampConfidence(confidence),
		RawConfidenceText: payload.Confidence,
		SourceFilename:    payload.Filename,
	}
}

func (c *Client) authorize(req *http.Request) error {
	if len(c.secret) == 0 {
		return nil
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   c.clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	return nil
}

func buildUpload(file classification.SelectedFile) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", file.MIMEType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

// ParseLeadingFloat parses the longest numeric prefix of s, ignoring leading
// whitespace, so "88.40%" yields 88.4. Unparsable input yields 0.
func ParseLeadingFloat(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	seenDigit, seenDot := false, false
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			end = i + 1
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			break scan
		}
	}
	if !seenDigit {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}

func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out. Please try again."
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "The request timed out. Please try again."
	}
	return "An error occurred while analyzing the image. Please try again."
}
