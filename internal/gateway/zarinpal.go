package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	CodeSuccess         = 100
	CodeAlreadyVerified = 101
	// локальные коды, шлюз их не возвращает
	CodeCancelled    = -1
	CodeRequestError = -2
)

const (
	productionBase = "https://api.zarinpal.com/pg/v4/payment/"
	productionPay  = "https://www.zarinpal.com/pg/StartPay/"
	sandboxBase    = "https://sandbox.zarinpal.com/pg/v4/payment/"
	sandboxPay     = "https://sandbox.zarinpal.com/pg/StartPay/"
)

// Error: ошибка шлюза: payload errors, неуспешный HTTP-статус или сбой сети
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway error %d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

type Config struct {
	MerchantID string
	RequestURL string
	VerifyURL  string
	StartPay   string
	Timeout    time.Duration
}

func NewConfig(merchantID string, sandbox bool, timeout time.Duration) Config {
	base, pay := productionBase, productionPay
	if sandbox {
		base, pay = sandboxBase, sandboxPay
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return Config{
		MerchantID: merchantID,
		RequestURL: base + "request.json",
		VerifyURL:  base + "verify.json",
		StartPay:   pay,
		Timeout:    timeout,
	}
}

type Client struct {
	cfg  Config
	HTTP *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		HTTP: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

type RequestInput struct {
	Amount      int64
	CallbackURL string
	Description string
	Email       string
	Mobile      string
}

type RequestResult struct {
	Authority string
	Code      int
	Message   string
	Fee       int64
}

type VerifyResult struct {
	Code    int
	Message string
	RefID   string
	CardPan string
}

type requestBody struct {
	MerchantID  string            `json:"merchant_id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	CallbackURL string            `json:"callback_url"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type verifyBody struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

// envelope: при успехе errors == [], при ошибке data == []
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type errorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type requestData struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Authority string `json:"authority"`
	Fee       int64  `json:"fee"`
}

type verifyData struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	RefID   json.RawMessage `json:"ref_id"`
	CardPan string          `json:"card_pan"`
}

func (c *Client) Request(ctx context.Context, in RequestInput) (*RequestResult, error) {
	if in.Amount <= 0 {
		return nil, &Error{Code: CodeRequestError, Message: "amount must be positive"}
	}
	body := requestBody{
		MerchantID:  c.cfg.MerchantID,
		Amount:      in.Amount,
		Currency:    "IRR",
		CallbackURL: in.CallbackURL,
		Description: in.Description,
	}
	meta := map[string]string{}
	if in.Email != "" {
		meta["email"] = in.Email
	}
	if in.Mobile != "" {
		meta["mobile"] = in.Mobile
	}
	if len(meta) > 0 {
		body.Metadata = meta
	}

	var data requestData
	if err := c.post(ctx, c.cfg.RequestURL, body, &data); err != nil {
		return nil, err
	}
	if data.Code != CodeSuccess || strings.TrimSpace(data.Authority) == "" {
		return nil, &Error{Code: data.Code, Message: nonEmpty(data.Message, "missing authority")}
	}
	return &RequestResult{Authority: data.Authority, Code: data.Code, Message: data.Message, Fee: data.Fee}, nil
}

// Verify возвращает результат для кодов 100 и 101, остальные коды: *Error
func (c *Client) Verify(ctx context.Context, amount int64, authority string) (*VerifyResult, error) {
	var data verifyData
	if err := c.post(ctx, c.cfg.VerifyURL, verifyBody{
		MerchantID: c.cfg.MerchantID,
		Amount:     amount,
		Authority:  authority,
	}, &data); err != nil {
		return nil, err
	}
	if data.Code != CodeSuccess && data.Code != CodeAlreadyVerified {
		return nil, &Error{Code: data.Code, Message: nonEmpty(data.Message, "verification failed")}
	}
	return &VerifyResult{
		Code:    data.Code,
		Message: data.Message,
		RefID:   rawToString(data.RefID),
		CardPan: data.CardPan,
	}, nil
}

func (c *Client) StartPayURL(authority string) string {
	return c.cfg.StartPay + authority
}

func (c *Client) post(ctx context.Context, url string, payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return &Error{Code: CodeRequestError, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.log.Warn("zarinpal request failed", zap.String("url", url), zap.Duration("took", time.Since(start)), zap.Error(err))
		msg := "connection error"
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			msg = "gateway timeout"
		}
		return &Error{Code: CodeRequestError, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Code: CodeRequestError, Message: "read response", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &Error{Code: CodeRequestError, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
		}
		return &Error{Code: CodeRequestError, Message: "invalid response", Err: err}
	}

	if isObject(env.Errors) {
		var ep errorPayload
		if err := json.Unmarshal(env.Errors, &ep); err == nil && ep.Code != 0 {
			return &Error{Code: ep.Code, Message: ep.Message}
		}
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{Code: CodeRequestError, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	if !isObject(env.Data) {
		return &Error{Code: CodeRequestError, Message: "empty data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Code: CodeRequestError, Message: "invalid data", Err: err}
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// ref_id приходит числом, в старых версиях API строкой
func rawToString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return string(raw)
}

func nonEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
