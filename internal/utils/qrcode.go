package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const qrCodeSize = 256

// Credentials is the payload encoded into a user's login QR code.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// GenerateCredentialsQR renders the credentials as a PNG QR code data URL
func GenerateCredentialsQR(login, password string) (string, error) {
	payload, err := json.Marshal(Credentials{Login: login, Password: password})
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("failed to render qr code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
