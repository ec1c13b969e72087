package rpc

import (
	"net/http"

	"nftmarket/crypto"
	"nftmarket/indexer"
	"nftmarket/native/marketplace"
)

type method func(r *http.Request, req *RPCRequest) (interface{}, error)

var errIndexDisabled = &RPCError{Code: codeServerError, Message: "offer index disabled", status: http.StatusServiceUnavailable}

func (s *Server) routes() map[string]method {
	return map[string]method{
		"market_newOffer":           s.handleMarketNewOffer,
		"market_buy":                s.handleMarketBuy,
		"market_editOffer":          s.handleMarketEditOffer,
		"market_cancelOffer":        s.handleMarketCancelOffer,
		"market_withdrawCommission": s.handleMarketWithdrawCommission,
		"market_offer":              s.handleMarketOffer,
		"market_numberOfOffer":      s.handleMarketNumberOfOffer,
		"market_batchGetOffer":      s.handleMarketBatchGetOffer,
		"market_commission":         s.handleMarketCommission,
		"market_operator":           s.handleMarketOperator,
		"market_offersBySeller":     s.handleMarketOffersBySeller,
		"market_listOffers":         s.handleMarketListOffers,
		"market_offerHistory":       s.handleMarketOfferHistory,

		"collection_deploy":            s.handleCollectionDeploy,
		"collection_mint":              s.handleCollectionMint,
		"collection_approve":           s.handleCollectionApprove,
		"collection_setApprovalForAll": s.handleCollectionSetApprovalForAll,
		"collection_ownerOf":           s.handleCollectionOwnerOf,
		"collection_balanceOf":         s.handleCollectionBalanceOf,
		"collection_info":              s.handleCollectionInfo,
		"collection_byOwner":           s.handleCollectionsByOwner,

		"bank_getBalance": s.handleBankGetBalance,
		"bank_credit":     s.handleBankCredit,
		"bank_freeze":     s.handleBankFreeze,
		"bank_unfreeze":   s.handleBankUnfreeze,
	}
}

type newOfferParams struct {
	Caller   string `json:"caller"`
	Contract string `json:"contract"`
	AssetID  string `json:"assetId"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

type offerActionParams struct {
	Caller  string `json:"caller"`
	OfferID uint64 `json:"offerId"`
	Amount  string `json:"amount,omitempty"`
}

type offerIDParams struct {
	OfferID uint64 `json:"offerId"`
}

type rangeParams struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type sellerParams struct {
	Seller string `json:"seller"`
}

type listOffersParams struct {
	Seller     string `json:"seller,omitempty"`
	Collection string `json:"collection,omitempty"`
	Status     string `json:"status,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// authorizedCaller parses the caller field and checks the request credential
// against it.
func (s *Server) authorizedCaller(r *http.Request, value string) ([20]byte, error) {
	caller, err := parseAddressParam("caller", value)
	if err != nil {
		return caller, err
	}
	if err := s.requireAuth(r, caller); err != nil {
		return caller, err
	}
	return caller, nil
}

func (s *Server) handleMarketNewOffer(r *http.Request, req *RPCRequest) (interface{}, error) {
	var params newOfferParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	contract, err := parseAddressParam("contract", params.Contract)
	if err != nil {
		return nil, err
	}
	assetID, err := parseAmountParam("assetId", params.AssetID)
	if err != nil {
		return nil, err
	}
	quantity, err := parseAmountParam("quantity", params.Quantity)
	if err != nil {
		return nil, err
	}
	price, err := parseAmountParam("price", params.Price)
	if err != nil {
		return nil, err
	}
	offer, err := s.node.MarketNewOffer(r.Context(), caller, contract, assetID, quantity, price)
	if err != nil {
		return nil, err
	}
	return newOfferJSON(offer), nil
}

func (s *Server) handleMarketBuy(r *http.Request, req *RPCRequest) (interface{}, error) {
	var params offerActionParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	paid, err := parseAmountParam("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	offer, err := s.node.MarketBuy(r.Context(), caller, params.OfferID, paid)
	if err != nil {
		return nil, err
	}
	return newOfferJSON(offer), nil
}

func (s *Server) handleMarketEditOffer(r *http.Request, req *RPCRequest) (interface{}, error) {
	var params offerActionParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	price, err := parseAmountParam("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	offer, err := s.node.MarketEditOffer(r.Context(), caller, params.OfferID, price)
	if err != nil {
		return nil, err
	}
	return newOfferJSON(offer), nil
}

func (s *Server) handleMarketCancelOffer(r *http.Request, req *RPCRequest) (interface{}, error) {
	var params offerActionParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	offer, err := s.node.MarketCancelOffer(r.Context(), caller, params.OfferID)
	if err != nil {
		return nil, err
	}
	return newOfferJSON(offer), nil
}

func (s *Server) handleMarketWithdrawCommission(r *http.Request, req *RPCRequest) (interface{}, error) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	amount, err := s.node.MarketWithdrawCommission(r.Context(), caller)
	if err != nil {
		return nil, err
	}
	return map[string]string{"amount": amount.String()}, nil
}

func (s *Server) handleMarketOffer(_ *http.Request, req *RPCRequest) (interface{}, error) {
	var params offerIDParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	offer, err := s.node.MarketOffer(params.OfferID)
	if err != nil {
		return nil, err
	}
	return newOfferJSON(offer), nil
}

func (s *Server) handleMarketNumberOfOffer(_ *http.Request, _ *RPCRequest) (interface{}, error) {
	count, err := s.node.MarketNumberOfOffer()
	if err != nil {
		return nil, err
	}
	return count, nil
}

func (s *Server) handleMarketBatchGetOffer(_ *http.Request, req *RPCRequest) (interface{}, error) {
	var params rangeParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	offers, err := s.node.MarketBatchGetOffer(params.Start, params.End)
	if err != nil {
		return nil, err
	}
	out := make([]offerJSON, 0, len(offers))
	for _, offer := range offers {
		out = append(out, newOfferJSON(offer))
	}
	return out, nil
}

func (s *Server) handleMarketCommission(_ *http.Request, _ *RPCRequest) (interface{}, error) {
	balance, err := s.node.MarketCommission()
	if err != nil {
		return nil, err
	}
	return commissionJSON{
		Balance:  balance.String(),
		Operator: crypto.HexAddress(s.node.Operator()),
		RateBps:  s.node.MarketCommissionBps(),
	}, nil
}

func (s *Server) handleMarketOperator(_ *http.Request, _ *RPCRequest) (interface{}, error) {
	return crypto.HexAddress(s.node.Operator()), nil
}

func (s *Server) handleMarketOffersBySeller(_ *http.Request, req *RPCRequest) (interface{}, error) {
	var params sellerParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	seller, err := parseAddressParam("seller", params.Seller)
	if err != nil {
		return nil, err
	}
	ids, err := s.node.MarketOffersBySeller(seller)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

func (s *Server) handleMarketListOffers(r *http.Request, req *RPCRequest) (interface{}, error) {
	if s.index == nil {
		return nil, errIndexDisabled
	}
	var params listOffersParams
	if len(req.Params) > 0 {
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
	}
	filter := indexer.Filter{Status: params.Status, Offset: params.Offset, Limit: params.Limit}
	if params.Status != "" {
		if _, err := marketplace.ParseOfferStatus(params.Status); err != nil {
			return nil, invalidParams("status: %v", err)
		}
	}
	if params.Seller != "" {
		seller, err := parseAddressParam("seller", params.Seller)
		if err != nil {
			return nil, err
		}
		filter.Seller = crypto.HexAddress(seller)
	}
	if params.Collection != "" {
		collection, err := parseAddressParam("collection", params.Collection)
		if err != nil {
			return nil, err
		}
		filter.Collection = crypto.HexAddress(collection)
	}
	records, err := s.index.ListOffers(r.Context(), filter)
	if err != nil {
		return nil, err
	}
	out := make([]offerRecordJSON, 0, len(records))
	for _, record := range records {
		out = append(out, newOfferRecordJSON(record))
	}
	return out, nil
}

type offerEventJSON struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes string `json:"attributes"`
	RecordedAt int64  `json:"recordedAt"`
}

func (s *Server) handleMarketOfferHistory(r *http.Request, req *RPCRequest) (interface{}, error) {
	if s.index == nil {
		return nil, errIndexDisabled
	}
	var params offerIDParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	history, err := s.index.History(r.Context(), params.OfferID)
	if err != nil {
		return nil, err
	}
	out := make([]offerEventJSON, 0, len(history))
	for _, entry := range history {
		out = append(out, offerEventJSON{
			ID:         entry.ID.String(),
			Type:       entry.Type,
			Attributes: entry.Attributes,
			RecordedAt: entry.RecordedAt.Unix(),
		})
	}
	return out, nil
}
