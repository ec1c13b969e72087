package marketplace

import "errors"

var (
	ErrZeroAddress            = errors.New("marketplace: zero address is not allowed")
	ErrZeroAmount             = errors.New("marketplace: amount cannot be zero")
	ErrInvalidQuantityForKind = errors.New("marketplace: amount must be 1 for single-unit assets")
	ErrUnsupportedAsset       = errors.New("marketplace: asset contract is not a supported collection")
	ErrInvalidAssetID         = errors.New("marketplace: asset id must be non-negative")
	ErrOfferNotFound          = errors.New("marketplace: offer does not exist")
	ErrNotOwner               = errors.New("marketplace: caller is not the owner")
	ErrAlreadySold            = errors.New("marketplace: offer already sold")
	ErrInsufficientPayment    = errors.New("marketplace: payment is below the offer price")
	ErrZeroBalance            = errors.New("marketplace: no commission balance")
	ErrInvalidRange           = errors.New("marketplace: invalid offer range")
	ErrInvalidCommissionRate  = errors.New("marketplace: commission rate out of range")

	errNilState    = errors.New("marketplace engine: state not configured")
	errNilAssets   = errors.New("marketplace engine: asset registry not configured")
	errNilPayments = errors.New("marketplace engine: payment ledger not configured")
)
