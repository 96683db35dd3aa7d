// Package telegram is an HTTP client for the Telegram Bot API: long-polled
// updates in, messages and documents out.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"remindbot/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

// SendOptions are the optional knobs of an outgoing message.
type SendOptions struct {
	ParseMode string
	ReplyTo   int64
}

// Client is the Bot API surface the bot consumes.
type Client interface {
	GetMe(ctx context.Context) (*types.User, error)
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]types.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (*types.Message, error)
	SendDocument(ctx context.Context, chatID int64, path, caption string, opts SendOptions) (*types.Message, error)
	GetFile(ctx context.Context, fileID string) (*types.File, error)
	FileURL(filePath string) string
}

type botClient struct {
	baseURL string
	token   string
	client  *http.Client
	// pollClient carries no client-wide timeout: getUpdates blocks
	// server-side for the whole long-poll hold, which a general-purpose
	// timeout would cut short on every idle cycle. The per-request context
	// bounds it instead.
	pollClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a Bot API client. The token never appears in logs.
func NewClient(cfg types.ClientConfig, logger *logrus.Logger) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &botClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
		client:     &http.Client{Timeout: cfg.Timeout},
		pollClient: &http.Client{},
		logger:     logger,
	}
}

func (c *botClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// FileURL builds the download URL for a file path returned by getFile.
func (c *botClient) FileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)
}

// call posts a JSON payload to a Bot API method and decodes the result.
// A response with ok=false becomes a *types.APIError.
func (c *botClient) call(ctx context.Context, method string, payload, result interface{}) error {
	return c.callWith(ctx, c.client, method, payload, result)
}

func (c *botClient) callWith(ctx context.Context, client *http.Client, method string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	return c.decode(method, resp, result)
}

func (c *botClient) decode(method string, resp *http.Response, result interface{}) error {
	var envelope types.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response (HTTP %d): %w", method, resp.StatusCode, err)
	}

	if !envelope.OK {
		apiErr := &types.APIError{
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
		}
		if envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
		}
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"code":   apiErr.Code,
		}).Debug("Telegram API call failed")
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *botClient) GetMe(ctx context.Context) (*types.User, error) {
	var me types.User
	if err := c.call(ctx, "getMe", struct{}{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *botClient) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]types.Update, error) {
	if timeoutSec < 0 {
		timeoutSec = 0
	}
	payload := types.GetUpdatesRequest{
		Offset:         offset,
		Timeout:        timeoutSec,
		AllowedUpdates: []string{"message"},
	}

	// The request blocks server-side for up to timeoutSec; bound the HTTP
	// exchange at that hold plus headroom. This context is the only
	// deadline on the poll, so it must always be set.
	pollCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec+10)*time.Second)
	defer cancel()

	var updates []types.Update
	if err := c.callWith(pollCtx, c.pollClient, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *botClient) SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (*types.Message, error) {
	payload := types.SendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: opts.ParseMode,
		ReplyTo:   opts.ReplyTo,
	}

	var msg types.Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendDocument uploads a local file as a document via multipart form data.
func (c *botClient) SendDocument(ctx context.Context, chatID int64, path, caption string, opts SendOptions) (*types.Message, error) {
	file, err := os.Open(path) // #nosec G304 - staged paths are validated against the staging dir
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"caption": caption,
	}
	if opts.ParseMode != "" {
		fields["parse_mode"] = opts.ParseMode
	}
	if opts.ReplyTo != 0 {
		fields["reply_to_message_id"] = strconv.FormatInt(opts.ReplyTo, 10)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}

	part, err := writer.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy attachment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create sendDocument request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send sendDocument request: %w", err)
	}
	defer resp.Body.Close()

	var msg types.Message
	if err := c.decode("sendDocument", resp, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *botClient) GetFile(ctx context.Context, fileID string) (*types.File, error) {
	var f types.File
	if err := c.call(ctx, "getFile", types.GetFileRequest{FileID: fileID}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
