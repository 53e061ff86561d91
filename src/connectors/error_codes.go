package connectors

import "fmt"

const RetCodeOK = 0

// BybitErrorCodes maps Bybit v5 retCode values to human-readable messages.
var BybitErrorCodes = map[int]string{
	0:      "OK",                       // Success
	10001:  "PARAMS_ERROR",             // Request parameter error
	10002:  "REQUEST_TIME_EXCEEDS",     // Timestamp outside recv_window
	10003:  "INVALID_API_KEY",          // API key is invalid
	10004:  "SIGN_ERROR",               // Signature mismatch
	10005:  "PERMISSION_DENIED",        // Key lacks the required permission
	10006:  "TOO_MANY_VISITS",          // Rate limited
	10010:  "UNMATCHED_IP",             // IP not in the key whitelist
	10016:  "SERVER_ERROR",             // Internal error, retry later
	10017:  "ROUTE_NOT_FOUND",          // Path not found or wrong method
	10024:  "COMPLIANCE_RULES",         // Region restricted
	10027:  "TRADING_BANNED",           // Account trading banned
	110001: "ORDER_NOT_EXIST",          // Order does not exist
	181001: "CATEGORY_NOT_SUPPORTED",   // Category not supported by the endpoint
	170130: "DATA_SENT_EXCEEDS_LIMITS", // Parameter value too large
}

// GetErrorMsg returns a human-readable message for a given Bybit retCode.
// If the code is unknown, returns a generic message including the code.
func GetErrorMsg(code int) string {
	if msg, ok := BybitErrorCodes[code]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_BYBIT_ERROR_%d", code)
}
