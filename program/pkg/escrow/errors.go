package escrow

import "errors"

// Rejections surfaced by the program. Every operation that returns one of
// these has left all balances and the event log untouched.
var (
	ErrUnauthorized             = errors.New("unauthorized")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrMathOverflow             = errors.New("math overflow")
	ErrNoPoints                 = errors.New("no points to distribute")
	ErrInvalidInsiderShares     = errors.New("insider shares exceed 100% (10000 bps)")
	ErrMissingRemainingAccounts = errors.New("not enough remaining accounts passed for winners/insiders")

	ErrConfigNotInitialized     = errors.New("config not initialized")
	ErrConfigAlreadyInitialized = errors.New("config already initialized")
	ErrInvalidConfig            = errors.New("invalid config")
	ErrInvalidArgument          = errors.New("invalid argument")
)

// Code returns a stable machine-readable code for a program error, or
// "internal" when err is not one of the program's rejections.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrMathOverflow):
		return "math_overflow"
	case errors.Is(err, ErrNoPoints):
		return "no_points"
	case errors.Is(err, ErrInvalidInsiderShares):
		return "invalid_insider_shares"
	case errors.Is(err, ErrMissingRemainingAccounts):
		return "missing_remaining_accounts"
	case errors.Is(err, ErrConfigNotInitialized):
		return "config_not_initialized"
	case errors.Is(err, ErrConfigAlreadyInitialized):
		return "config_already_initialized"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "internal"
	}
}

// IsRejection reports whether err is one of the program's typed rejections
// as opposed to an infrastructure failure.
func IsRejection(err error) bool {
	return err != nil && Code(err) != "internal"
}
