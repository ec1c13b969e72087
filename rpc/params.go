package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/holiman/uint256"

	"nftmarket/core"
	"nftmarket/crypto"
	"nftmarket/native/assets"
	"nftmarket/native/bank"
	"nftmarket/native/marketplace"
)

func invalidParams(format string, args ...interface{}) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: "invalid_params", Data: fmt.Sprintf(format, args...), status: http.StatusBadRequest}
}

// decodeParams unmarshals the single parameter object of req into out.
func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return invalidParams("exactly one parameter object expected")
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return invalidParams("%v", err)
	}
	return nil
}

func parseAddressParam(field, value string) ([20]byte, error) {
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return [20]byte{}, invalidParams("%s: %v", field, err)
	}
	return addr, nil
}

// parseAmountParam parses a non-negative decimal bounded to 256 bits.
func parseAmountParam(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, invalidParams("%s: value required", field)
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, invalidParams("%s: %v", field, err)
	}
	return amount.ToBig(), nil
}

// toRPCError maps engine errors onto JSON-RPC codes and HTTP statuses.
func toRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.status == 0 {
			rpcErr.status = http.StatusBadRequest
		}
		return rpcErr
	}
	build := func(code, status int) *RPCError {
		return &RPCError{Code: code, Message: err.Error(), Data: core.FailureReason(err), status: status}
	}
	switch {
	case errors.Is(err, marketplace.ErrZeroAddress),
		errors.Is(err, marketplace.ErrZeroAmount),
		errors.Is(err, marketplace.ErrInvalidQuantityForKind),
		errors.Is(err, marketplace.ErrInvalidAssetID),
		errors.Is(err, marketplace.ErrUnsupportedAsset),
		errors.Is(err, marketplace.ErrInvalidRange),
		errors.Is(err, assets.ErrUnsupportedAsset),
		errors.Is(err, assets.ErrUnknownKind),
		errors.Is(err, assets.ErrInvalidQuantity),
		errors.Is(err, assets.ErrZeroAddress),
		errors.Is(err, assets.ErrSelfApproval),
		errors.Is(err, assets.ErrMintMismatch),
		errors.Is(err, bank.ErrZeroAddress),
		errors.Is(err, bank.ErrInvalidAmount):
		return build(codeInvalidParams, http.StatusBadRequest)
	case errors.Is(err, marketplace.ErrOfferNotFound),
		errors.Is(err, assets.ErrCollectionNotFound),
		errors.Is(err, assets.ErrTokenNotFound):
		return build(codeNotFound, http.StatusNotFound)
	case errors.Is(err, marketplace.ErrNotOwner),
		errors.Is(err, core.ErrNotOperator),
		errors.Is(err, assets.ErrNotOwnerOrApproved),
		errors.Is(err, assets.ErrNotCollectionOwner):
		return build(codeForbidden, http.StatusForbidden)
	case errors.Is(err, marketplace.ErrAlreadySold),
		errors.Is(err, marketplace.ErrZeroBalance),
		errors.Is(err, assets.ErrTokenExists):
		return build(codeConflict, http.StatusConflict)
	case errors.Is(err, marketplace.ErrInsufficientPayment),
		errors.Is(err, bank.ErrInsufficientFunds),
		errors.Is(err, bank.ErrAccountFrozen),
		errors.Is(err, assets.ErrInsufficientBalance):
		return build(codePayment, http.StatusPaymentRequired)
	default:
		return &RPCError{Code: codeServerError, Message: "internal error", status: http.StatusInternalServerError}
	}
}
