package ticket

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrExpired is returned by Verify for a well-signed credential whose
// validity window has passed. The claims are still returned so callers can
// identify which ticket expired.
var ErrExpired = errors.New("ticket has expired")

// Claims is the signed payload of a travel credential. The signature binds
// the booking, trip and seat together so a ticket cannot be altered to board
// a different trip or seat.
type Claims struct {
	BookingID  string `json:"booking_id"`
	TripID     string `json:"trip_id"`
	SeatNumber string `json:"seat_number"`
	jwt.RegisteredClaims
}

// Signer issues and verifies travel-credential signatures.
type Signer struct {
	secret string
	grace  time.Duration
}

// NewSigner creates a new Signer. grace is how long past scheduled departure
// a credential stays verifiable, covering delayed departures.
func NewSigner(secret string, grace time.Duration) *Signer {
	return &Signer{secret: secret, grace: grace}
}

// Sign produces the credential token for a booking. The returned expiry is
// departure plus the configured grace window.
func (s *Signer) Sign(bookingID, tripID, seatNumber string, departure time.Time) (string, time.Time, error) {
	now := time.Now()
	expiresAt := departure.Add(s.grace)

	claims := Claims{
		BookingID:  bookingID,
		TripID:     tripID,
		SeatNumber: seatNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "swifttransit-booking",
			Subject:   bookingID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign ticket: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify validates a credential token's signature and expiry and returns its
// claims. An expired but otherwise well-signed token returns its claims
// alongside ErrExpired.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) && token != nil {
			if claims, ok := token.Claims.(*Claims); ok {
				return claims, ErrExpired
			}
		}
		return nil, fmt.Errorf("failed to parse ticket: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid ticket")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid ticket claims")
	}

	return claims, nil
}
