package data

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/gorilla/websocket"

	"github.com/commonwealth-im/commonwealth-api/src/api/events"
)

// ---------- tiny JSON-RPC helpers ----------

type rpcReq struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResp struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ---------- TwoX-128 (Substrate) ----------

func twox128(data []byte) []byte {
	hash1 := xxhash.NewS64(0)
	hash1.Write(data)
	hash2 := xxhash.NewS64(1)
	hash2.Write(data)
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:], hash1.Sum64())
	binary.LittleEndian.PutUint64(out[8:], hash2.Sum64())
	return out
}

func storageKey(pallet, item string) string {
	key := append(twox128([]byte(pallet)), twox128([]byte(item))...)
	return "0x" + hex.EncodeToString(key)
}

var refCountKey = storageKey("Referenda", "ReferendumCount")

// ---------- core fetchers ----------

func wsCall(ws *websocket.Conn, method string, params []interface{}) (json.RawMessage, error) {
	req := rpcReq{Jsonrpc: "2.0", ID: 1, Method: method, Params: params}
	if err := ws.WriteJSON(req); err != nil {
		return nil, err
	}
	var rsp rpcResp
	if err := ws.ReadJSON(&rsp); err != nil {
		return nil, err
	}
	if rsp.Error != nil {
		return nil, fmt.Errorf("RPC %d: %s", rsp.Error.Code, rsp.Error.Message)
	}
	return rsp.Result, nil
}

func getReferendumCount(ws *websocket.Conn) (uint32, error) {
	result, err := wsCall(ws, "state_getStorage", []interface{}{refCountKey, nil})
	if err != nil {
		return 0, err
	}
	var hexVal string
	if err := json.Unmarshal(result, &hexVal); err != nil {
		return 0, err
	}
	if len(hexVal) < 3 {
		return 0, nil
	}
	raw, err := hex.DecodeString(hexVal[2:])
	if err != nil {
		return 0, err
	}
	if len(raw) < 4 {
		return 0, fmt.Errorf("unexpected storage length: %d", len(raw))
	}
	return binary.LittleEndian.Uint32(raw[:4]), nil
}

func getHeadNumber(ws *websocket.Conn) (uint64, error) {
	result, err := wsCall(ws, "chain_getHeader", nil)
	if err != nil {
		return 0, err
	}
	var header struct {
		Number string `json:"number"`
	}
	if err := json.Unmarshal(result, &header); err != nil {
		return 0, err
	}
	return strconv.ParseUint(strip0x(header.Number), 16, 64)
}

func strip0x(s string) string {
	if len(s) > 1 && s[:2] == "0x" {
		return s[2:]
	}
	return s
}

// StartReferendaWatcher polls the chain's referendum count and emits one
// democracy-started event per newly observed referendum. The downstream
// dedup cache absorbs redeliveries after reconnects.
func StartReferendaWatcher(ctx context.Context, wsURL, chain string, interval time.Duration, out chan<- events.RawEvent) {
	var lastCount uint32
	seeded := false

	for {
		if ctx.Err() != nil {
			return
		}

		ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			log.Printf("referenda watcher dial %s: %v", wsURL, err)
			select {
			case <-time.After(10 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		ticker := time.NewTicker(interval)
	poll:
		for {
			select {
			case <-ticker.C:
				count, err := getReferendumCount(ws)
				if err != nil {
					log.Printf("referenda watcher count: %v", err)
					break poll
				}
				if !seeded {
					lastCount = count
					seeded = true
					continue
				}
				if count <= lastCount {
					continue
				}

				block, err := getHeadNumber(ws)
				if err != nil {
					log.Printf("referenda watcher head: %v", err)
					break poll
				}
				for idx := lastCount; idx < count; idx++ {
					ev := events.RawEvent{
						Network:     events.NetworkSubstrate,
						Chain:       chain,
						BlockNumber: block,
						Data: map[string]interface{}{
							"kind":            "democracy-started",
							"referendumIndex": idx,
						},
					}
					select {
					case out <- ev:
					case <-ctx.Done():
						ticker.Stop()
						ws.Close()
						return
					}
				}
				lastCount = count

			case <-ctx.Done():
				ticker.Stop()
				ws.Close()
				return
			}
		}
		ticker.Stop()
		ws.Close()
	}
}
