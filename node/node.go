package node

import (
	`context`
	`fmt`
	`sync`

	`github.com/libp2p/go-libp2p`
	pubsub `github.com/libp2p/go-libp2p-pubsub`
	`github.com/libp2p/go-libp2p/core/host`
	`github.com/libp2p/go-libp2p/core/peer`
	`github.com/libp2p/go-libp2p/p2p/discovery/mdns`
	ma `github.com/multiformats/go-multiaddr`
	`github.com/rs/zerolog`

	`gossipchain/chainerr`
	`gossipchain/core`
	`gossipchain/mempool`
	`gossipchain/store`
)

// mdnsServiceTag is the local-network service name mdns peers discover
// each other under; every gossipchain node on the same LAN uses the same
// tag so they find one another, the way the Rust original's mdns
// behaviour used a single well-known protocol name.
const mdnsServiceTag = "gossipchain-mdns"

// Config configures a Node at construction time (SPEC_FULL.md's
// Configuration section).
type Config struct {
	ListenPort int    // libp2p TCP listen port
	MinerAddr  string // address credited with coinbase rewards when mining
	Bits       uint8  // PoW difficulty
}

// Node is gossipchain's gossip peer (C9): one libp2p host, one gossipsub
// instance over the blocks/transactions topics, the Chain and UTXOIndex it
// drives, the mempool and block-in-transit queue mining/sync consult, and
// the NamedWallets keyring wallet commands operate on.
type Node struct {
	cfg Config
	log zerolog.Logger

	host host.Host
	ps   *pubsub.PubSub

	blocksTopic *pubsub.Topic
	blocksSub   *pubsub.Subscription
	txTopic     *pubsub.Topic
	txSub       *pubsub.Subscription

	chain       *core.Chain
	utxo        *core.UTXOIndex
	st          store.Store
	mempool     *mempool.Pool
	transit     *mempool.BlocksInTransit
	wallets     *core.NamedWallets
	walletsPath string

	peersMu sync.RWMutex
	peers   map[peer.ID]struct{}
}

// New builds a libp2p host listening on cfg.ListenPort, joins both
// gossipsub topics, starts mdns discovery, and wires chain/utxo/mempool/
// wallets around st. walletsPath is the file execCreateWallet rewrites
// after every wallet it creates (spec.md §6's "wallet.dat is rewritten
// wholesale on every create_wallet").
func New(ctx context.Context, cfg Config, st store.Store, wallets *core.NamedWallets, walletsPath string, log zerolog.Logger) (*Node, error) {
	listenAddr, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", cfg.ListenPort))
	if err != nil {
		return nil, fmt.Errorf("build listen multiaddr: %w: %v", chainerr.ErrProtocol, err)
	}
	h, err := libp2p.New(libp2p.ListenAddrs(listenAddr))
	if err != nil {
		return nil, fmt.Errorf("create libp2p host: %v", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("create gossipsub: %v", err)
	}

	blocksTopic, err := ps.Join(BlocksTopic)
	if err != nil {
		return nil, fmt.Errorf("join %s topic: %v", BlocksTopic, err)
	}
	blocksSub, err := blocksTopic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("subscribe %s topic: %v", BlocksTopic, err)
	}

	txTopic, err := ps.Join(TransactionsTopic)
	if err != nil {
		return nil, fmt.Errorf("join %s topic: %v", TransactionsTopic, err)
	}
	txSub, err := txTopic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("subscribe %s topic: %v", TransactionsTopic, err)
	}

	chain, err := core.Open(st)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:         cfg,
		log:         log,
		host:        h,
		ps:          ps,
		blocksTopic: blocksTopic,
		blocksSub:   blocksSub,
		txTopic:     txTopic,
		txSub:       txSub,
		chain:       chain,
		utxo:        core.NewUTXOIndex(st),
		st:          st,
		mempool:     mempool.New(),
		transit:     mempool.NewBlocksInTransit(),
		wallets:     wallets,
		walletsPath: walletsPath,
		peers:       make(map[peer.ID]struct{}),
	}

	notifee := &mdnsNotifee{node: n}
	svc := mdns.NewMdnsService(h, mdnsServiceTag, notifee)
	if err := svc.Start(); err != nil {
		return nil, fmt.Errorf("start mdns discovery: %v", err)
	}

	return n, nil
}

// PeerID returns the node's libp2p peer id string (SPEC_FULL.md's "Stable
// PEER_ID" supplemented feature). It is derived from the host's identity
// key, which is generated when the node starts and is not persisted, so
// the id is stable for the life of the process and changes on restart.
func (n *Node) PeerID() string {
	return n.host.ID().String()
}

// Peers returns the currently known peer ids, backing the supplemented
// Peers command (SPEC_FULL.md, grounded on node.rs's list_peers).
func (n *Node) Peers() []string {
	n.peersMu.RLock()
	defer n.peersMu.RUnlock()
	out := make([]string, 0, len(n.peers))
	for p := range n.peers {
		out = append(out, p.String())
	}
	return out
}

// mdnsNotifee records every peer mdns discovers and dials it, so the
// gossipsub mesh actually includes it.
type mdnsNotifee struct {
	node *Node
}

func (d *mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	n := d.node
	n.peersMu.Lock()
	n.peers[pi.ID] = struct{}{}
	n.peersMu.Unlock()

	if err := n.host.Connect(context.Background(), pi); err != nil {
		n.log.Warn().Err(err).Str("peer", pi.ID.String()).Msg("connect to discovered peer failed")
	}
}
