package rpc

import (
	"math/big"
	"net/http"
	"strings"

	"nftmarket/crypto"
	"nftmarket/native/assets"
)

type deployParams struct {
	Caller string `json:"caller"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
}

type mintParams struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	To         string `json:"to"`
	URI        string `json:"uri,omitempty"`
	TokenID    string `json:"tokenId,omitempty"`
	Amount     string `json:"amount,omitempty"`
}

type approveParams struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	Approved   string `json:"approved"`
	TokenID    string `json:"tokenId"`
}

type approvalForAllParams struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	Operator   string `json:"operator"`
	Approved   bool   `json:"approved"`
}

type tokenParams struct {
	Collection string `json:"collection"`
	Holder     string `json:"holder,omitempty"`
	TokenID    string `json:"tokenId,omitempty"`
}

type ownerParams struct {
	Owner string `json:"owner"`
}

func (s *Server) handleCollectionDeploy(r *http.Request, req *RPCRequest) (interface{}, error) {
	var params deployParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	kind, err := assets.ParseKind(params.Kind)
	if err != nil {
		return nil, invalidParams("kind: %v", err)
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, invalidParams("name: value required")
	}
	info, err := s.node.CollectionDeploy(r.Context(), caller, kind, params.Name)
	if err != nil {
		return nil, err
	}
	return newCollectionJSON(info), nil
}

// handleCollectionMint mints a single-unit token when the collection is
// single-unit, otherwise credits tokenId/amount units.
func (s *Server) handleCollectionMint(r *http.Request, req *RPCRequest) (interface{}, error) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	collection, err := parseAddressParam("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	to, err := parseAddressParam("to", params.To)
	if err != nil {
		return nil, err
	}
	info, err := s.node.CollectionInfo(collection)
	if err != nil {
		return nil, err
	}
	switch info.Kind {
	case assets.KindSingleUnit:
		id, err := s.node.CollectionMintSingle(r.Context(), caller, collection, to, params.URI)
		if err != nil {
			return nil, err
		}
		return map[string]string{"tokenId": id.String()}, nil
	case assets.KindMultiUnit:
		id, err := parseAmountParam("tokenId", params.TokenID)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmountParam("amount", params.Amount)
		if err != nil {
			return nil, err
		}
		if err := s.node.CollectionMintMulti(r.Context(), caller, collection, to, id, amount); err != nil {
			return nil, err
		}
		return map[string]string{"tokenId": id.String(), "amount": amount.String()}, nil
	default:
		return nil, assets.ErrUnsupportedAsset
	}
}

func (s *Server) handleCollectionApprove(r *http.Request, req *RPCRequest) (interface{}, error) {
	var params approveParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	collection, err := parseAddressParam("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	approved, err := parseAddressParam("approved", params.Approved)
	if err != nil {
		return nil, err
	}
	id, err := parseAmountParam("tokenId", params.TokenID)
	if err != nil {
		return nil, err
	}
	if err := s.node.CollectionApprove(r.Context(), caller, collection, approved, id); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleCollectionSetApprovalForAll(r *http.Request, req *RPCRequest) (interface{}, error) {
	var params approvalForAllParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	collection, err := parseAddressParam("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	operator, err := parseAddressParam("operator", params.Operator)
	if err != nil {
		return nil, err
	}
	if err := s.node.CollectionSetApprovalForAll(r.Context(), caller, collection, operator, params.Approved); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleCollectionOwnerOf(_ *http.Request, req *RPCRequest) (interface{}, error) {
	var params tokenParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddressParam("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	id, err := parseAmountParam("tokenId", params.TokenID)
	if err != nil {
		return nil, err
	}
	owner, err := s.node.CollectionOwnerOf(collection, id)
	if err != nil {
		return nil, err
	}
	return crypto.HexAddress(owner), nil
}

func (s *Server) handleCollectionBalanceOf(_ *http.Request, req *RPCRequest) (interface{}, error) {
	var params tokenParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddressParam("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	holder, err := parseAddressParam("holder", params.Holder)
	if err != nil {
		return nil, err
	}
	id := new(big.Int)
	if params.TokenID != "" {
		if id, err = parseAmountParam("tokenId", params.TokenID); err != nil {
			return nil, err
		}
	}
	balance, err := s.node.CollectionBalanceOf(collection, holder, id)
	if err != nil {
		return nil, err
	}
	return balance.String(), nil
}

func (s *Server) handleCollectionInfo(_ *http.Request, req *RPCRequest) (interface{}, error) {
	var params tokenParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddressParam("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	info, err := s.node.CollectionInfo(collection)
	if err != nil {
		return nil, err
	}
	return newCollectionJSON(info), nil
}

func (s *Server) handleCollectionsByOwner(_ *http.Request, req *RPCRequest) (interface{}, error) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	owner, err := parseAddressParam("owner", params.Owner)
	if err != nil {
		return nil, err
	}
	addrs, err := s.node.CollectionsByOwner(owner)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, crypto.HexAddress(addr))
	}
	return out, nil
}
