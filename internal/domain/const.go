package domain

import "time"

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// DEFAULT_TOKEN_DECIMALS is the fixed-point precision of the native token (wei)
	DEFAULT_TOKEN_DECIMALS = 18

	// DEFAULT_ESCROW_HOLD_PERIOD is how long funds stay in escrow after a purchase
	DEFAULT_ESCROW_HOLD_PERIOD = 7 * 24 * time.Hour

	// Listing defaults written for products that only exist on-chain
	ONCHAIN_PRODUCT_NAME_PREFIX = "onchain#"
	ONCHAIN_LISTING_QUANTITY    = 1

	// Reputation change reasons
	REPUTATION_REASON_TRANSACTION_COMPLETED = "transaction_completed"
)
