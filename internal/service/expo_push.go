package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"quitpath/internal/model"
)

// DefaultExpoPushURL is Expo's push send endpoint.
const DefaultExpoPushURL = "https://exp.host/--/api/v2/push/send"

// expoBatchLimit is the most messages Expo accepts per request.
const expoBatchLimit = 100

// ExpoPushClient sends notifications through Expo's push API. Expo fans out
// to APNs and FCM, so no platform credentials are needed.
type ExpoPushClient struct {
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

// ExpoPushMessage is the payload for Expo's Push API.
type ExpoPushMessage struct {
	To        []string          `json:"to"`
	Title     string            `json:"title,omitempty"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Sound     string            `json:"sound,omitempty"`
	Priority  string            `json:"priority,omitempty"`
	ChannelID string            `json:"channelId,omitempty"`
}

type expoPushResponse struct {
	Data   []expoPushTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

type expoPushTicket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"` // DeviceNotRegistered, MessageTooBig, ...
	} `json:"details,omitempty"`
}

// PushResult summarizes one send. Unregistered lists tokens Expo says no
// longer belong to an installed app; callers should forget them.
type PushResult struct {
	Sent         int
	Failed       int
	Unregistered []string
}

func NewExpoPushClient(url string, log *zap.Logger) *ExpoPushClient {
	if url == "" {
		url = DefaultExpoPushURL
	}
	return &ExpoPushClient{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.Named("expo_push"),
	}
}

// Send pushes one notification to every valid token, batching as Expo
// requires. Tokens that are not Expo push tokens are skipped.
func (c *ExpoPushClient) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (*PushResult, error) {
	valid := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if model.IsExpoPushToken(t) {
			valid = append(valid, t)
		} else {
			c.log.Debug("skipping non-expo token", zap.String("prefix", t[:min(20, len(t))]))
		}
	}

	result := &PushResult{}
	for start := 0; start < len(valid); start += expoBatchLimit {
		end := min(start+expoBatchLimit, len(valid))
		msg := ExpoPushMessage{
			To:        valid[start:end],
			Title:     title,
			Body:      body,
			Data:      data,
			Sound:     "default",
			Priority:  "high",
			ChannelID: "default",
		}
		if err := c.sendBatch(ctx, msg, result); err != nil {
			return result, err
		}
	}

	if len(valid) > 0 {
		c.log.Debug("push sent",
			zap.Int("tokens", len(valid)),
			zap.Int("ok", result.Sent),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

func (c *ExpoPushClient) sendBatch(ctx context.Context, msg ExpoPushMessage, result *PushResult) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var pushResp expoPushResponse
	if err := json.Unmarshal(respBody, &pushResp); err != nil {
		// Expo accepted the request; an unreadable body only costs us the tickets.
		c.log.Warn("unreadable push response", zap.Error(err))
		result.Sent += len(msg.To)
		return nil
	}
	if len(pushResp.Errors) > 0 {
		return fmt.Errorf("expo api error: %s: %s", pushResp.Errors[0].Code, pushResp.Errors[0].Message)
	}

	// Tickets come back in the order of msg.To.
	for i, ticket := range pushResp.Data {
		if ticket.Status == "ok" {
			result.Sent++
			continue
		}
		result.Failed++
		c.log.Debug("push ticket failed", zap.String("message", ticket.Message), zap.String("error", ticket.Details.Error))
		if ticket.Details.Error == "DeviceNotRegistered" && i < len(msg.To) {
			result.Unregistered = append(result.Unregistered, msg.To[i])
		}
	}
	return nil
}
