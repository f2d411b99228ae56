package token

// Mask shortens a token for logs and display.
func Mask(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}
