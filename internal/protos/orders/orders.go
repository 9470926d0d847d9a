// Package orders holds the wire messages exchanged with the trading desk
// server over POST /order. The schema is owned by the server contract
// (order.proto); this package encodes and decodes the two messages with
// proto3 semantics: string fields, empty-is-absent, unknown fields skipped.
package orders

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// OrderRequest field numbers per the server's order.proto.
const (
	reqSymbol      = 1
	reqQty         = 2
	reqSide        = 3
	reqOrderType   = 4
	reqTimeInForce = 5
	reqLimitPrice  = 6
	reqStopPrice   = 7
)

// OrderResponse field numbers per the server's order.proto.
const (
	respStatus      = 1
	respOrderID     = 2
	respMessage     = 3
	respSymbol      = 4
	respQty         = 5
	respSide        = 6
	respFilledQty   = 7
	respOrderStatus = 8
)

// OrderRequest is one outbound order submission. Empty fields are omitted
// from the encoding, so an explicitly empty limit/stop price is
// indistinguishable from an absent one.
type OrderRequest struct {
	Symbol      string
	Qty         string
	Side        string
	OrderType   string
	TimeInForce string
	LimitPrice  string
	StopPrice   string
}

// OrderResponse is the server's reply. Status is an open string: anything
// other than exactly "success" is a failure, with Message carrying the
// human-readable reason.
type OrderResponse struct {
	Status      string
	OrderID     string
	Message     string
	Symbol      string
	Qty         string
	Side        string
	FilledQty   string
	OrderStatus string
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// Marshal encodes the request into protobuf wire format.
func (r *OrderRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, reqSymbol, r.Symbol)
	b = appendString(b, reqQty, r.Qty)
	b = appendString(b, reqSide, r.Side)
	b = appendString(b, reqOrderType, r.OrderType)
	b = appendString(b, reqTimeInForce, r.TimeInForce)
	b = appendString(b, reqLimitPrice, r.LimitPrice)
	b = appendString(b, reqStopPrice, r.StopPrice)
	return b
}

// Unmarshal decodes protobuf wire format into the request, replacing its
// contents. Unknown fields are skipped.
func (r *OrderRequest) Unmarshal(data []byte) error {
	*r = OrderRequest{}
	return walkFields(data, func(num protowire.Number, v string) {
		switch num {
		case reqSymbol:
			r.Symbol = v
		case reqQty:
			r.Qty = v
		case reqSide:
			r.Side = v
		case reqOrderType:
			r.OrderType = v
		case reqTimeInForce:
			r.TimeInForce = v
		case reqLimitPrice:
			r.LimitPrice = v
		case reqStopPrice:
			r.StopPrice = v
		}
	})
}

// Marshal encodes the response into protobuf wire format.
func (r *OrderResponse) Marshal() []byte {
	var b []byte
	b = appendString(b, respStatus, r.Status)
	b = appendString(b, respOrderID, r.OrderID)
	b = appendString(b, respMessage, r.Message)
	b = appendString(b, respSymbol, r.Symbol)
	b = appendString(b, respQty, r.Qty)
	b = appendString(b, respSide, r.Side)
	b = appendString(b, respFilledQty, r.FilledQty)
	b = appendString(b, respOrderStatus, r.OrderStatus)
	return b
}

// Unmarshal decodes protobuf wire format into the response, replacing its
// contents. Unknown fields are skipped.
func (r *OrderResponse) Unmarshal(data []byte) error {
	*r = OrderResponse{}
	return walkFields(data, func(num protowire.Number, v string) {
		switch num {
		case respStatus:
			r.Status = v
		case respOrderID:
			r.OrderID = v
		case respMessage:
			r.Message = v
		case respSymbol:
			r.Symbol = v
		case respQty:
			r.Qty = v
		case respSide:
			r.Side = v
		case respFilledQty:
			r.FilledQty = v
		case respOrderStatus:
			r.OrderStatus = v
		}
	})
}

// walkFields iterates the wire-format fields in data, invoking set for each
// length-delimited field and skipping fields of any other wire type.
func walkFields(data []byte, set func(num protowire.Number, v string)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		if typ == protowire.BytesType {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			set(num, v)
			data = data[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
	}
	return nil
}
