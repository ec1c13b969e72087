package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

type argKind int

const (
	argString argKind = iota
	argUint
	argInt
	argBool
)

type argSpec struct {
	flag     string
	param    string
	kind     argKind
	required bool
	usage    string
}

type command struct {
	method  string
	summary string
	auth    bool
	args    []argSpec
}

func str(flagName, param, usage string) argSpec {
	return argSpec{flag: flagName, param: param, kind: argString, required: true, usage: usage}
}

func optStr(flagName, param, usage string) argSpec {
	return argSpec{flag: flagName, param: param, kind: argString, usage: usage}
}

func num(flagName, param, usage string) argSpec {
	return argSpec{flag: flagName, param: param, kind: argUint, usage: usage}
}

var commands = map[string]command{
	"new-offer": {method: "market_newOffer", summary: "escrow an asset and list it at a fixed price", auth: true, args: []argSpec{
		str("caller", "caller", "seller address"),
		str("contract", "contract", "collection address"),
		str("asset-id", "assetId", "token id"),
		str("quantity", "quantity", "units to sell (1 for single-unit assets)"),
		str("price", "price", "asking price"),
	}},
	"buy": {method: "market_buy", summary: "pay for an active offer", auth: true, args: []argSpec{
		str("caller", "caller", "buyer address"),
		num("offer", "offerId", "offer id"),
		str("amount", "amount", "amount paid, at least the price"),
	}},
	"edit-offer": {method: "market_editOffer", summary: "change the price of an active offer", auth: true, args: []argSpec{
		str("caller", "caller", "seller address"),
		num("offer", "offerId", "offer id"),
		str("price", "amount", "new price"),
	}},
	"cancel-offer": {method: "market_cancelOffer", summary: "cancel an offer and return the escrowed asset", auth: true, args: []argSpec{
		str("caller", "caller", "seller address"),
		num("offer", "offerId", "offer id"),
	}},
	"withdraw-commission": {method: "market_withdrawCommission", summary: "pay accrued commission to the operator", auth: true, args: []argSpec{
		str("caller", "caller", "operator address"),
	}},
	"offer": {method: "market_offer", summary: "show one offer", args: []argSpec{
		num("id", "offerId", "offer id"),
	}},
	"offer-count": {method: "market_numberOfOffer", summary: "number of offers ever created"},
	"offers": {method: "market_batchGetOffer", summary: "show offers in an inclusive id range", args: []argSpec{
		num("start", "start", "first id"),
		num("end", "end", "last id"),
	}},
	"commission": {method: "market_commission", summary: "accrued commission and rate"},
	"operator":   {method: "market_operator", summary: "marketplace operator address"},
	"seller-offers": {method: "market_offersBySeller", summary: "offer ids created by a seller", args: []argSpec{
		str("seller", "seller", "seller address"),
	}},
	"list-offers": {method: "market_listOffers", summary: "query the offer index", args: []argSpec{
		optStr("seller", "seller", "filter by seller"),
		optStr("collection", "collection", "filter by collection"),
		optStr("status", "status", "filter by status (active, sold, cancelled)"),
		{flag: "offset", param: "offset", kind: argInt, usage: "rows to skip"},
		{flag: "limit", param: "limit", kind: argInt, usage: "page size"},
	}},
	"offer-history": {method: "market_offerHistory", summary: "indexed events of an offer", args: []argSpec{
		num("id", "offerId", "offer id"),
	}},
	"deploy-collection": {method: "collection_deploy", summary: "create a collection", auth: true, args: []argSpec{
		str("caller", "caller", "owner address"),
		str("kind", "kind", "single or multi"),
		str("name", "name", "collection name"),
	}},
	"mint": {method: "collection_mint", summary: "mint into a collection", auth: true, args: []argSpec{
		str("caller", "caller", "collection owner"),
		str("collection", "collection", "collection address"),
		str("to", "to", "recipient"),
		optStr("uri", "uri", "metadata uri (single-unit)"),
		optStr("token-id", "tokenId", "token id (multi-unit)"),
		optStr("amount", "amount", "units (multi-unit)"),
	}},
	"approve": {method: "collection_approve", summary: "approve an address for one token", auth: true, args: []argSpec{
		str("caller", "caller", "token owner"),
		str("collection", "collection", "collection address"),
		str("approved", "approved", "approved address"),
		str("token-id", "tokenId", "token id"),
	}},
	"approve-all": {method: "collection_setApprovalForAll", summary: "grant or revoke an operator", auth: true, args: []argSpec{
		str("caller", "caller", "holder"),
		str("collection", "collection", "collection address"),
		str("operator", "operator", "operator address"),
		{flag: "approved", param: "approved", kind: argBool, usage: "grant (true) or revoke (false)"},
	}},
	"owner-of": {method: "collection_ownerOf", summary: "owner of a single-unit token", args: []argSpec{
		str("collection", "collection", "collection address"),
		str("token-id", "tokenId", "token id"),
	}},
	"balance-of": {method: "collection_balanceOf", summary: "holder balance in a collection", args: []argSpec{
		str("collection", "collection", "collection address"),
		str("holder", "holder", "holder address"),
		optStr("token-id", "tokenId", "token id (multi-unit)"),
	}},
	"collection": {method: "collection_info", summary: "collection metadata", args: []argSpec{
		str("address", "collection", "collection address"),
	}},
	"collections": {method: "collection_byOwner", summary: "collections deployed by an owner", args: []argSpec{
		str("owner", "owner", "owner address"),
	}},
	"balance": {method: "bank_getBalance", summary: "account balance", args: []argSpec{
		str("address", "address", "account address"),
	}},
	"credit": {method: "bank_credit", summary: "operator: credit an account", auth: true, args: []argSpec{
		str("caller", "caller", "operator address"),
		str("address", "address", "account address"),
		str("amount", "amount", "amount to credit"),
	}},
	"freeze": {method: "bank_freeze", summary: "operator: block an account from receiving", auth: true, args: []argSpec{
		str("caller", "caller", "operator address"),
		str("address", "address", "account address"),
	}},
	"unfreeze": {method: "bank_unfreeze", summary: "operator: unblock an account", auth: true, args: []argSpec{
		str("caller", "caller", "operator address"),
		str("address", "address", "account address"),
	}},
}

func (c command) run(cl *client, args []string, stdout, stderr io.Writer) int {
	params, err := c.parse(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	var payload interface{}
	if len(c.args) > 0 {
		payload = params
	}
	result, err := cl.call(c.method, payload, c.auth)
	if err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) {
			fmt.Fprintln(stderr, rpcErr.Error())
			return 1
		}
		fmt.Fprintf(stderr, "RPC call failed: %v\n", err)
		return 1
	}
	writeRPCResult(stdout, result)
	return 0
}

func (c command) parse(args []string, stderr io.Writer) (map[string]interface{}, error) {
	fs := flag.NewFlagSet(c.method, flag.ContinueOnError)
	fs.SetOutput(stderr)

	strs := make(map[string]*string)
	uints := make(map[string]*uint64)
	ints := make(map[string]*int)
	bools := make(map[string]*bool)
	for _, a := range c.args {
		switch a.kind {
		case argString:
			strs[a.flag] = fs.String(a.flag, "", a.usage)
		case argUint:
			uints[a.flag] = fs.Uint64(a.flag, 0, a.usage)
		case argInt:
			ints[a.flag] = fs.Int(a.flag, 0, a.usage)
		case argBool:
			bools[a.flag] = fs.Bool(a.flag, false, a.usage)
		}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	params := make(map[string]interface{}, len(c.args))
	for _, a := range c.args {
		switch a.kind {
		case argString:
			value := strings.TrimSpace(*strs[a.flag])
			if value == "" {
				if a.required {
					return nil, fmt.Errorf("--%s is required", a.flag)
				}
				continue
			}
			params[a.param] = value
		case argUint:
			params[a.param] = *uints[a.flag]
		case argInt:
			if *ints[a.flag] < 0 {
				return nil, fmt.Errorf("--%s must not be negative", a.flag)
			}
			if *ints[a.flag] > 0 {
				params[a.param] = *ints[a.flag]
			}
		case argBool:
			params[a.param] = *bools[a.flag]
		}
	}
	return params, nil
}
