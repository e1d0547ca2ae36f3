// Package node implements gossipchain's gossip peer (C9, spec.md §4.7): a
// libp2p host running gossipsub over two topics (blocks, transactions)
// with mdns local peer discovery, a JSON-over-stdin command loop, and the
// Version/Blocks/Block message handlers that drive longest-chain
// replacement. Grounded in shape on the teacher's network/pseudo_p2p.go
// (a handler-per-message-type dispatch with a shared, lock-guarded
// peer/block-transit state) and on blockchain_v007/networks/node.rs (the
// Rust original this was distilled from: a rust-libp2p Swarm with a
// gossipsub behaviour over BLOCK_TOPIC/TRANX_TOPIC and a tokio::select!
// event loop over stdin/mpsc/swarm events), restyled onto
// github.com/libp2p/go-libp2p-pubsub since no complete Go libp2p node
// exists among the example repos (see DESIGN.md).
package node

import (
	`encoding/json`
	`fmt`

	`gossipchain/chainerr`
	`gossipchain/core`
)

// BlocksTopic and TransactionsTopic are the two gossipsub topics spec.md
// §4.7/§6 names. TransactionsTopic is joined and subscribed to but no
// handler acts on inbound messages there, matching spec.md §9's "subscribed
// but unused in the source" resolution for transaction gossip.
const (
	BlocksTopic       = "blocks"
	TransactionsTopic = "transactions"
)

// wireMessage is the envelope every gossipsub message on BlocksTopic is
// wrapped in; Kind selects which of Version/Blocks/Block to decode the
// Payload into.
type wireMessage struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

const (
	kindVersion = "version"
	kindBlocks  = "blocks"
	kindBlock   = "block"
)

// VersionMsg announces the sender's height, per spec.md §4.7.
type VersionMsg struct {
	BestHeight uint64 `json:"best_height"`
	FromAddr   string `json:"from_addr"`
}

// BlocksMsg delivers a full chain snapshot (forward order) to one peer.
type BlocksMsg struct {
	Blocks []*core.Block `json:"blocks"`
	Height uint64        `json:"height"`
	ToAddr string        `json:"to_addr"`
}

// BlockMsg announces a single newly mined block to all peers.
type BlockMsg struct {
	Block *core.Block `json:"block"`
}

// encodeVersion wraps v in a wireMessage envelope ready to publish.
func encodeVersion(v VersionMsg) ([]byte, error) {
	return encodeEnvelope(kindVersion, v)
}

func encodeBlocks(b BlocksMsg) ([]byte, error) {
	return encodeEnvelope(kindBlocks, b)
}

func encodeBlock(b BlockMsg) ([]byte, error) {
	return encodeEnvelope(kindBlock, b)
}

func encodeEnvelope(kind string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w: %v", kind, chainerr.ErrSerialization, err)
	}
	return json.Marshal(wireMessage{Kind: kind, Payload: raw})
}

// decodeEnvelope unwraps data into its kind and the still-raw payload.
func decodeEnvelope(data []byte) (wireMessage, error) {
	var env wireMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return wireMessage{}, fmt.Errorf("decode gossip message: %w: %v", chainerr.ErrProtocol, err)
	}
	return env, nil
}
