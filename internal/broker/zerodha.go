package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "nifty-trader/internal/errors"
	"nifty-trader/internal/models"
	"nifty-trader/pkg/utils"
)

// Index instrument tokens on NSE. Indices never appear in the
// tradeable instrument dump, so these are resolved statically.
var indexTokens = map[string]uint32{
	"NIFTY 50":   256265,
	"NIFTY BANK": 260105,
}

// Zerodha implements CandleSource and Gateway on top of the Kite
// Connect API.
type Zerodha struct {
	client        *kiteconnect.Client
	apiKey        string
	apiSecret     string
	userID        string
	tokenPath     string
	accessToken   string
	authenticated bool
	tokens        map[string]uint32
	mu            sync.RWMutex
}

// ZerodhaConfig holds configuration for the Zerodha client.
type ZerodhaConfig struct {
	APIKey    string
	APISecret string
	UserID    string
	TokenPath string
}

// NewZerodha creates a new Zerodha client. Any saved session is loaded
// from disk automatically.
func NewZerodha(cfg ZerodhaConfig) *Zerodha {
	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		tokenPath = filepath.Join(homeDir, ".config", "nifty-trader", "session.json")
	}

	z := &Zerodha{
		client:    kiteconnect.New(cfg.APIKey),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		userID:    cfg.UserID,
		tokenPath: tokenPath,
		tokens:    make(map[string]uint32),
	}

	_ = z.loadSession()

	return z
}

// sessionData represents persisted session data.
type sessionData struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login verifies the stored session. When no valid session exists it
// returns an error carrying the login URL for the user to complete the
// OAuth flow.
func (z *Zerodha) Login(ctx context.Context) error {
	if err := z.loadSession(); err == nil && z.IsAuthenticated() {
		if _, err := z.client.GetUserProfile(); err == nil {
			return nil
		}
	}

	loginURL := z.client.GetLoginURL()
	return fmt.Errorf("authentication required: visit %s and complete login, then call CompleteLogin with the request token", loginURL)
}

// CompleteLogin completes the OAuth flow with the request token.
func (z *Zerodha) CompleteLogin(ctx context.Context, requestToken string) error {
	session, err := z.client.GenerateSession(requestToken, z.apiSecret)
	if err != nil {
		return apperrors.Wrap(err, "generating session")
	}

	z.mu.Lock()
	z.authenticated = true
	z.accessToken = session.AccessToken
	z.client.SetAccessToken(session.AccessToken)
	z.mu.Unlock()

	if err := z.saveSession(session.AccessToken); err != nil {
		// Session is valid even if persistence fails.
		fmt.Printf("warning: failed to persist session: %v\n", err)
	}

	return nil
}

// Logout invalidates the session and removes the stored token.
func (z *Zerodha) Logout(ctx context.Context) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.authenticated {
		if _, err := z.client.InvalidateAccessToken(); err != nil {
			fmt.Printf("warning: failed to invalidate token: %v\n", err)
		}
	}

	z.authenticated = false
	z.accessToken = ""

	if err := os.Remove(z.tokenPath); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(err, "removing session file")
	}

	return nil
}

// IsAuthenticated returns whether a session is active.
func (z *Zerodha) IsAuthenticated() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.authenticated
}

// AccessToken returns the active session token, or empty when not
// authenticated. Used to open the websocket ticker.
func (z *Zerodha) AccessToken() string {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.accessToken
}

// APIKey returns the configured Kite API key.
func (z *Zerodha) APIKey() string {
	return z.apiKey
}

// UserID returns the configured Zerodha user ID.
func (z *Zerodha) UserID() string {
	return z.userID
}

func (z *Zerodha) loadSession() error {
	data, err := os.ReadFile(z.tokenPath)
	if err != nil {
		return err
	}

	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}

	if time.Now().After(session.ExpiresAt) {
		return apperrors.ErrSessionExpired
	}

	z.mu.Lock()
	z.authenticated = true
	z.accessToken = session.AccessToken
	z.client.SetAccessToken(session.AccessToken)
	z.mu.Unlock()

	return nil
}

func (z *Zerodha) saveSession(accessToken string) error {
	dir := filepath.Dir(z.tokenPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	// Kite tokens expire at 6 AM IST the next day.
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	now := time.Now().In(loc)
	expiresAt := time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, loc)

	session := sessionData{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return os.WriteFile(z.tokenPath, data, 0600)
}

// Fetch retrieves historical OHLCV candles for a symbol.
func (z *Zerodha) Fetch(ctx context.Context, symbol, interval string, from, to time.Time) ([]models.Candle, error) {
	if !z.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	token, err := z.instrumentToken(symbol)
	if err != nil {
		return nil, err
	}

	// Transient Kite API failures are retried with backoff.
	var data []kiteconnect.HistoricalData
	err = utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		var fetchErr error
		data, fetchErr = z.client.GetHistoricalData(int(token), mapInterval(interval), from, to, false, false)
		return fetchErr
	})
	if err != nil {
		return nil, apperrors.NewDataError("historical", symbol, "fetch failed", err)
	}

	candles := make([]models.Candle, len(data))
	for i, d := range data {
		candles[i] = models.Candle{
			Timestamp: d.Date.Time,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    int64(d.Volume),
		}
	}

	return candles, nil
}

// PlaceMarketOrder places an intraday market order and returns the
// broker order ID.
func (z *Zerodha) PlaceMarketOrder(ctx context.Context, symbol string, side models.OrderSide, quantity int) (string, error) {
	if !z.IsAuthenticated() {
		return "", apperrors.ErrNotAuthenticated
	}

	params := kiteconnect.OrderParams{
		Exchange:        string(models.NSE),
		Tradingsymbol:   symbol,
		TransactionType: string(side),
		OrderType:       "MARKET",
		Product:         "MIS",
		Quantity:        quantity,
		Validity:        "DAY",
	}

	resp, err := z.client.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return "", apperrors.NewBrokerError("order", "market order failed", err)
	}

	return resp.OrderID, nil
}

func (z *Zerodha) instrumentToken(symbol string) (uint32, error) {
	if token, ok := indexTokens[symbol]; ok {
		return token, nil
	}

	z.mu.RLock()
	token, ok := z.tokens[symbol]
	z.mu.RUnlock()
	if ok {
		return token, nil
	}

	instruments, err := z.client.GetInstruments()
	if err != nil {
		return 0, apperrors.Wrap(err, "fetching instruments")
	}

	z.mu.Lock()
	for _, inst := range instruments {
		if inst.Exchange == string(models.NSE) {
			z.tokens[inst.Tradingsymbol] = uint32(inst.InstrumentToken)
		}
	}
	token, ok = z.tokens[symbol]
	z.mu.Unlock()

	if !ok {
		return 0, apperrors.NewDataError("instrument", symbol, "not found", nil)
	}

	return token, nil
}

func mapInterval(interval string) string {
	switch interval {
	case Interval1Min:
		return "minute"
	case Interval5Min:
		return "5minute"
	case Interval15Min:
		return "15minute"
	case Interval1Day:
		return "day"
	default:
		return "5minute"
	}
}

// GetLoginURL returns the Kite login URL for the OAuth flow.
func (z *Zerodha) GetLoginURL() string {
	return z.client.GetLoginURL()
}

// Ensure Zerodha implements both roles
var (
	_ CandleSource = (*Zerodha)(nil)
	_ Gateway      = (*Zerodha)(nil)
)
