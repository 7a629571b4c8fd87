package invoke

import (
	"encoding/json"
	"fmt"

	"github.com/aura-studio/bragg/chain"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Codec converts invocation payloads to events and responses to payloads.
type Codec interface {
	Name() string
	EncodeEvent(ev chain.Event) ([]byte, error)
	DecodeEvent(b []byte) (chain.Event, error)
	EncodeResponse(rsp chain.Response) ([]byte, error)
	DecodeResponse(b []byte) (chain.Response, error)
}

const (
	CodecJSON  = "json"
	CodecProto = "proto"
)

var (
	JSON  Codec = jsonCodec{}
	Proto Codec = protoCodec{}
)

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case CodecJSON, "":
		return JSON, nil
	case CodecProto, "protobuf":
		return Proto, nil
	}
	return nil, fmt.Errorf("invoke: unrecognized codec: %q", name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecJSON }

func (jsonCodec) EncodeEvent(ev chain.Event) ([]byte, error) {
	if ev == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(ev)
}

func (jsonCodec) DecodeEvent(b []byte) (chain.Event, error) {
	return chain.EventFromJSON(b)
}

func (jsonCodec) EncodeResponse(rsp chain.Response) ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "statusCode", rsp.StatusCode)
	if err != nil {
		return nil, err
	}
	if len(rsp.Headers) > 0 {
		if out, err = sjson.SetBytes(out, "headers", rsp.Headers); err != nil {
			return nil, err
		}
	}
	if rsp.Body != nil {
		if out, err = sjson.SetBytes(out, "body", rsp.Body); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (jsonCodec) DecodeResponse(b []byte) (chain.Response, error) {
	if !gjson.ValidBytes(b) {
		return chain.Response{}, fmt.Errorf("invoke: invalid response json")
	}
	res := gjson.ParseBytes(b)

	rsp := chain.Response{StatusCode: int(res.Get("statusCode").Int())}
	if h := res.Get("headers"); h.IsObject() {
		rsp.Headers = make(map[string]string)
		h.ForEach(func(k, v gjson.Result) bool {
			rsp.Headers[k.String()] = v.String()
			return true
		})
	}
	if body := res.Get("body"); body.Exists() {
		rsp.Body = body.Value()
	}
	return rsp, nil
}

type protoCodec struct{}

func (protoCodec) Name() string { return CodecProto }

func (protoCodec) EncodeEvent(ev chain.Event) ([]byte, error) {
	return marshalStruct(map[string]any(ev))
}

func (protoCodec) DecodeEvent(b []byte) (chain.Event, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return chain.Event(s.AsMap()), nil
}

func (protoCodec) EncodeResponse(rsp chain.Response) ([]byte, error) {
	m := map[string]any{"statusCode": rsp.StatusCode}
	if len(rsp.Headers) > 0 {
		m["headers"] = rsp.Headers
	}
	if rsp.Body != nil {
		m["body"] = rsp.Body
	}
	return marshalStruct(m)
}

func (protoCodec) DecodeResponse(b []byte) (chain.Response, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return chain.Response{}, err
	}
	m := s.AsMap()

	var rsp chain.Response
	if code, ok := m["statusCode"].(float64); ok {
		rsp.StatusCode = int(code)
	}
	if h, ok := m["headers"].(map[string]any); ok {
		rsp.Headers = make(map[string]string, len(h))
		for k, v := range h {
			rsp.Headers[k] = fmt.Sprint(v)
		}
	}
	rsp.Body = m["body"]
	return rsp, nil
}

// marshalStruct round-trips m through JSON so that only types structpb
// understands reach it.
func marshalStruct(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var plain map[string]any
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(plain)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}
