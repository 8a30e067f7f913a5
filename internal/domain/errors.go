package domain

import "errors"

var (
	// ErrMissingProviderConfig is returned when the RPC provider URL or contract address is not configured
	ErrMissingProviderConfig = errors.New("blockchain provider url or marketplace contract address not set")

	// ErrUnknownEventKind is returned when an event kind is not one of the marketplace events
	ErrUnknownEventKind = errors.New("unknown event kind")

	// ErrMissingArgument is returned when a required event argument is absent from both raw shapes
	ErrMissingArgument = errors.New("missing event argument")

	// ErrInvalidProductID is returned when a product id cannot be decoded as a decimal integer
	ErrInvalidProductID = errors.New("invalid product id")

	// ErrInvalidAmount is returned when a token amount cannot be decoded
	ErrInvalidAmount = errors.New("invalid token amount")

	// ErrMissingTxHash is returned when a purchase record is requested without a transaction hash
	ErrMissingTxHash = errors.New("missing transaction hash")

	// ErrFarmerNotFound is returned when no farmer matches a reputation update
	ErrFarmerNotFound = errors.New("farmer not found")

	// ErrProductNotFound is returned when no local projection exists for an on-chain product
	ErrProductNotFound = errors.New("product not found")
)
