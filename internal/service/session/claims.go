package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims are the identity fields the client reads off the access
// credential. The client holds no signing secret, so the token is decoded
// without verification; the backend rejects tampered tokens on use anyway.
type accessClaims struct {
	UserID      string
	Username    string
	Email       string
	Role        string
	IsStaff     bool
	IsSuperuser bool
	IsCustomer  bool
	Verified    bool
	ExpiresAt   time.Time
}

func decodeAccessClaims(token string) (*accessClaims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, _ := mc["user_id"].(string)
	if userID == "" {
		// Some identity backends put the subject into the standard claim.
		userID, _ = mc["sub"].(string)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: missing 'user_id' claim", ErrInvalidToken)
	}

	expFloat, ok := mc["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing 'exp' claim", ErrInvalidToken)
	}

	claims := &accessClaims{
		UserID:    userID,
		ExpiresAt: time.Unix(int64(expFloat), 0),
	}

	claims.Username, _ = mc["username"].(string)
	claims.Email, _ = mc["email"].(string)
	claims.Role, _ = mc["role"].(string)
	claims.IsStaff, _ = mc["is_staff"].(bool)
	claims.IsSuperuser, _ = mc["is_superuser"].(bool)
	claims.IsCustomer, _ = mc["is_customer"].(bool)
	claims.Verified, _ = mc["verified"].(bool)

	return claims, nil
}
