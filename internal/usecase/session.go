package usecase

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"sulestate/internal/domain/entity"
	"sulestate/pkg/errors"
)

const sessionIssuer = "sulestate-chat"

// VisitorClaims binds a token to one conversation and the identity the visitor
// submitted when opening it.
type VisitorClaims struct {
	ConversationID string `json:"conversationId"`
	UserName       string `json:"userName"`
	UserEmail      string `json:"userEmail"`
	jwt.RegisteredClaims
}

// VisitorSession is what a visitor client keeps between page loads.
type VisitorSession struct {
	ConversationID string    `json:"conversationId"`
	UserName       string    `json:"userName"`
	UserEmail      string    `json:"userEmail"`
	Token          string    `json:"sessionToken"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, now func() time.Time) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
	}
}

func (m *SessionManager) Issue(conversation *entity.Conversation) (*VisitorSession, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)

	claims := VisitorClaims{
		ConversationID: conversation.ID,
		UserName:       conversation.UserName,
		UserEmail:      conversation.UserEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   conversation.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, errors.Internal("Failed to sign visitor session", err)
	}

	return &VisitorSession{
		ConversationID: conversation.ID,
		UserName:       conversation.UserName,
		UserEmail:      conversation.UserEmail,
		Token:          token,
		ExpiresAt:      expiresAt.Truncate(time.Second),
	}, nil
}

// Verify checks the signature and expiry of a visitor token against the
// manager's clock.
func (m *SessionManager) Verify(tokenString string) (*VisitorClaims, error) {
	if tokenString == "" {
		return nil, errors.Unauthorized("Session token is required", nil)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &VisitorClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, errors.Unauthorized("Invalid session token", err)
	}

	if !claims.VerifyExpiresAt(m.now(), true) {
		return nil, errors.Unauthorized("Session expired", nil)
	}
	if !claims.VerifyIssuer(sessionIssuer, true) || claims.ConversationID == "" {
		return nil, errors.Unauthorized("Invalid session token", nil)
	}

	return claims, nil
}
