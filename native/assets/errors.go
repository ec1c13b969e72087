package assets

import "errors"

var (
	ErrNilState            = errors.New("assets: state not configured")
	ErrUnknownKind         = errors.New("assets: unknown collection kind")
	ErrCollectionNotFound  = errors.New("assets: collection not found")
	ErrUnsupportedAsset    = errors.New("assets: collection does not implement a supported asset interface")
	ErrTokenNotFound       = errors.New("assets: token does not exist")
	ErrTokenExists         = errors.New("assets: token already minted")
	ErrNotOwnerOrApproved  = errors.New("assets: caller is not owner nor approved")
	ErrNotCollectionOwner  = errors.New("assets: caller is not the collection owner")
	ErrInsufficientBalance = errors.New("assets: insufficient balance for transfer")
	ErrInvalidQuantity     = errors.New("assets: invalid quantity for asset kind")
	ErrZeroAddress         = errors.New("assets: zero address is not allowed")
	ErrSelfApproval        = errors.New("assets: approval to current owner")
	ErrMintMismatch        = errors.New("assets: recipients and uris length mismatch")
)
