package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the bearer credential claims issued by the web application.
type Claims struct {
	UserID   AccountID `json:"user_id"`
	Username string    `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// AccountID accepts both JSON numbers and numeric strings.
type AccountID int64

func (a *AccountID) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(data, `"`)
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user_id %s: %w", data, err)
	}
	*a = AccountID(id)
	return nil
}

func (a AccountID) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(a))
}
