package bkash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client drives the bKash checkout API. Implementations must translate
// provider status strings with TranslateStatus at this boundary; the provider
// vocabulary never crosses into the rest of the system.
type Client interface {
	CreatePayment(ctx context.Context, amount float64, invoiceID, callbackURL string) (*CreateResponse, error)
	ExecutePayment(ctx context.Context, paymentID string) (*TransactionResponse, error)
	QueryPayment(ctx context.Context, paymentID string) (*TransactionResponse, error)
}

type CreateResponse struct {
	PaymentID         string `json:"paymentID"`
	TransactionStatus string `json:"transactionStatus"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	MerchantInvoiceNo string `json:"merchantInvoiceNumber"`
	BkashURL          string `json:"bkashURL"`
}

type TransactionResponse struct {
	PaymentID         string `json:"paymentID"`
	TrxID             string `json:"trxID"`
	TransactionStatus string `json:"transactionStatus"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	MerchantInvoiceNo string `json:"merchantInvoiceNumber"`
	CustomerMsisdn    string `json:"customerMsisdn"`
}

// Provider status vocabulary.
const (
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
	StatusCancelled = "Cancelled"
)

// Outcome is the provider-neutral reading of a transaction status.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeCompleted
	OutcomeFailed
)

// TranslateStatus maps a provider status string to a neutral outcome.
// Anything not clearly terminal reads as pending.
func TranslateStatus(providerStatus string) Outcome {
	switch providerStatus {
	case StatusCompleted:
		return OutcomeCompleted
	case StatusFailed, StatusCancelled:
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

// HTTPClient implements Client against the bKash checkout API. A fresh token
// is granted per call, as the sandbox recommends.
type HTTPClient struct {
	BaseURL   string
	Username  string
	Password  string
	AppKey    string
	AppSecret string
	client    *http.Client
}

func NewHTTPClient(baseURL, username, password, appKey, appSecret string) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://checkout.sandbox.bka.sh/v1.2.0-beta"
	}
	return &HTTPClient{
		BaseURL:   baseURL,
		Username:  username,
		Password:  password,
		AppKey:    appKey,
		AppSecret: appSecret,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type tokenResponse struct {
	IDToken   string `json:"id_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

func (c *HTTPClient) grantToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"app_key":    c.AppKey,
		"app_secret": c.AppSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/checkout/token/grant", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("username", c.Username)
	req.Header.Set("password", c.Password)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bkash token grant: %d", resp.StatusCode)
	}
	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.IDToken, nil
}

func (c *HTTPClient) CreatePayment(ctx context.Context, amount float64, invoiceID, callbackURL string) (*CreateResponse, error) {
	token, err := c.grantToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("bkash auth: %w", err)
	}
	payload, _ := json.Marshal(map[string]string{
		"amount":                fmt.Sprintf("%.2f", amount),
		"currency":              "BDT",
		"intent":                "sale",
		"merchantInvoiceNumber": invoiceID,
		"callbackURL":           callbackURL,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/checkout/payment/create", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req, token)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bkash create: %d", resp.StatusCode)
	}
	var out CreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ExecutePayment(ctx context.Context, paymentID string) (*TransactionResponse, error) {
	return c.transaction(ctx, http.MethodPost, "/checkout/payment/execute/"+paymentID)
}

func (c *HTTPClient) QueryPayment(ctx context.Context, paymentID string) (*TransactionResponse, error) {
	return c.transaction(ctx, http.MethodGet, "/checkout/payment/query/"+paymentID)
}

func (c *HTTPClient) transaction(ctx context.Context, method, path string) (*TransactionResponse, error) {
	token, err := c.grantToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("bkash auth: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req, token)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bkash %s: %d", path, resp.StatusCode)
	}
	var out TransactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) setAuthHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	req.Header.Set("x-app-key", c.AppKey)
}
