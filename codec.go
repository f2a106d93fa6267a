// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"errors"
	"fmt"

	"github.com/luxfi/xrpc/wire"
)

// XMLCodec renders envelopes as XML-RPC methodCall and methodResponse
// documents.
type XMLCodec struct{}

func (XMLCodec) EncodeCall(c *wire.Call) ([]byte, error) {
	data, err := wire.MarshalCall(c)
	return data, xmlError(err)
}

func (XMLCodec) DecodeCall(data []byte) (*wire.Call, error) {
	c, err := wire.UnmarshalCall(data)
	return c, xmlError(err)
}

func (XMLCodec) EncodeResponse(r *wire.Response) ([]byte, error) {
	data, err := wire.MarshalResponse(r)
	return data, xmlError(err)
}

func (XMLCodec) DecodeResponse(data []byte) (*wire.Response, error) {
	r, err := wire.UnmarshalResponse(data)
	return r, xmlError(err)
}

// xmlError reports values XML cannot carry as ErrUnsupportedType.
func xmlError(err error) error {
	if errors.Is(err, wire.ErrUnknownKind) || errors.Is(err, wire.ErrInvalidText) {
		return fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	return err
}

// defaultCodec is used when no codec is specified
var defaultCodec Codec = XMLCodec{}
