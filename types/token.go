package types

// TokenExchangeRequest is the body of POST /v1/tokens/exchange.
type TokenExchangeRequest struct {
	// DeviceToken is the APNS device token to convert.
	DeviceToken string `json:"device_token" binding:"required"`
}

// TokenExchangeResponse carries the FCM registration token for a successful
// exchange.
type TokenExchangeResponse struct {
	RegistrationToken string `json:"registration_token"`
}
