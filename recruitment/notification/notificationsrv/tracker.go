package notificationsrv

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTrackingTTL = 90 * 24 * time.Hour

// TrackingClaims is the signed payload of an open or click link
type TrackingClaims struct {
	TrackingID kernel.TrackingID           `json:"tid"`
	Event      notification.EngagementType `json:"evt"`
	Target     string                      `json:"url,omitempty"`
	jwt.RegisteredClaims
}

// Tracker issues and verifies engagement tracking links
type Tracker struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewTracker(secret, baseURL string, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTrackingTTL
	}
	return &Tracker{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewTrackingID returns a fresh identifier for one dispatched email
func (t *Tracker) NewTrackingID() kernel.TrackingID {
	return kernel.NewTrackingID(uuid.NewString())
}

func (t *Tracker) token(id kernel.TrackingID, event notification.EngagementType, target string) (string, error) {
	now := t.now()
	claims := TrackingClaims{
		TrackingID: id,
		Event:      event,
		Target:     target,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// OpenURL is the pixel URL embedded in HTML emails
func (t *Tracker) OpenURL(id kernel.TrackingID) (string, error) {
	tok, err := t.token(id, notification.EngagementOpen, "")
	if err != nil {
		return "", err
	}
	return t.baseURL + "/t/open/" + tok, nil
}

// ClickURL wraps target so the click is recorded before redirecting
func (t *Tracker) ClickURL(id kernel.TrackingID, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.New("click target must be an absolute http(s) URL")
	}
	tok, err := t.token(id, notification.EngagementClick, target)
	if err != nil {
		return "", err
	}
	return t.baseURL + "/t/click/" + tok, nil
}

// Verify parses a token and checks it is a valid link of the expected event
func (t *Tracker) Verify(token string, event notification.EngagementType) (*TrackingClaims, error) {
	claims := &TrackingClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, notification.ErrInvalidToken().WithCause(err)
	}
	if claims.TrackingID.IsEmpty() || claims.Event != event {
		return nil, notification.ErrInvalidToken().WithDetail("event", claims.Event)
	}
	return claims, nil
}
