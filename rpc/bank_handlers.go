package rpc

import "net/http"

type accountParams struct {
	Address string `json:"address"`
}

type creditParams struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
	Amount  string `json:"amount,omitempty"`
}

func (s *Server) handleBankGetBalance(_ *http.Request, req *RPCRequest) (interface{}, error) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	addr, err := parseAddressParam("address", params.Address)
	if err != nil {
		return nil, err
	}
	acc, err := s.node.BankAccount(addr)
	if err != nil {
		return nil, err
	}
	return newAccountJSON(addr, acc), nil
}

func (s *Server) handleBankCredit(r *http.Request, req *RPCRequest) (interface{}, error) {
	var params creditParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	addr, err := parseAddressParam("address", params.Address)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmountParam("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	if err := s.node.BankCredit(r.Context(), caller, addr, amount); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleBankFreeze(r *http.Request, req *RPCRequest) (interface{}, error) {
	return s.setFrozen(r, req, true)
}

func (s *Server) handleBankUnfreeze(r *http.Request, req *RPCRequest) (interface{}, error) {
	return s.setFrozen(r, req, false)
}

func (s *Server) setFrozen(r *http.Request, req *RPCRequest, frozen bool) (interface{}, error) {
	var params creditParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := s.authorizedCaller(r, params.Caller)
	if err != nil {
		return nil, err
	}
	addr, err := parseAddressParam("address", params.Address)
	if err != nil {
		return nil, err
	}
	if frozen {
		err = s.node.BankFreeze(r.Context(), caller, addr)
	} else {
		err = s.node.BankUnfreeze(r.Context(), caller, addr)
	}
	if err != nil {
		return nil, err
	}
	return true, nil
}
