package redis

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// PairingAlphabet leaves out 0, O, 1 and I.
	PairingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	PairingCodeLen  = 6
	PairingTTL      = 15 * time.Minute

	pairingPrefix = "pairing:"
	maxAttempts   = 5
)

var (
	ErrCodeNotFound = errors.New("pairing code not found or expired")
	ErrCodeUsed     = errors.New("pairing code already used")
)

// PairingSession is what a device registers while it waits to be claimed
// from the dashboard.
type PairingSession struct {
	Code        string          `json:"code"`
	DeviceID    string          `json:"device_id"`
	DeviceInfo  json.RawMessage `json:"device_info,omitempty"`
	DeviceIP    string          `json:"device_ip,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Paired      bool            `json:"paired"`
	ScreenID    string          `json:"screen_id,omitempty"`
	DeviceToken string          `json:"device_token,omitempty"`
	PairedBy    string          `json:"paired_by,omitempty"`
}

type PairingStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewPairingStore(client *redis.Client) *PairingStore {
	return &PairingStore{client: client, now: time.Now}
}

// GenerateCode returns PairingCodeLen random characters of PairingAlphabet.
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(PairingAlphabet)))
	code := make([]byte, PairingCodeLen)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = PairingAlphabet[n.Int64()]
	}
	return string(code), nil
}

// Create stores a new session under a fresh code.
func (p *PairingStore) Create(ctx context.Context, s PairingSession) (PairingSession, error) {
	now := p.now().UTC()
	s.CreatedAt = now
	s.ExpiresAt = now.Add(PairingTTL)
	s.Paired = false

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return PairingSession{}, fmt.Errorf("generate pairing code: %w", err)
		}
		s.Code = code
		body, err := json.Marshal(s)
		if err != nil {
			return PairingSession{}, err
		}

		ok, err := p.client.SetNX(ctx, pairingPrefix+code, body, PairingTTL).Result()
		if err != nil {
			return PairingSession{}, fmt.Errorf("store pairing code: %w", err)
		}
		if ok {
			return s, nil
		}
		log.Debug().Str("code", code).Msg("pairing code collision, retrying")
	}
	return PairingSession{}, fmt.Errorf("could not allocate a pairing code after %d attempts", maxAttempts)
}

func (p *PairingStore) Get(ctx context.Context, code string) (*PairingSession, error) {
	body, err := p.client.Get(ctx, pairingPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read pairing code: %w", err)
	}
	var s PairingSession
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode pairing session: %w", err)
	}
	return &s, nil
}

// MarkPaired records the screen and device token on the session, keeping
// its remaining TTL so the device can still collect them.
func (p *PairingStore) MarkPaired(ctx context.Context, code, screenID, deviceToken, pairedBy string) (*PairingSession, error) {
	s, err := p.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.Paired {
		return nil, ErrCodeUsed
	}
	s.Paired = true
	s.ScreenID = screenID
	s.DeviceToken = deviceToken
	s.PairedBy = pairedBy

	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	ok, err := p.client.SetArgs(ctx, pairingPrefix+code, body, redis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	if errors.Is(err, redis.Nil) || (err == nil && ok != "OK") {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update pairing code: %w", err)
	}
	return s, nil
}

// Consume deletes the session.
func (p *PairingStore) Consume(ctx context.Context, code string) error {
	return p.client.Del(ctx, pairingPrefix+code).Err()
}
