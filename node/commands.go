package node

import (
	`encoding/json`
	`fmt`

	`gossipchain/chainerr`
)

// Command is the decoded shape of one JSON line read from stdin, per
// spec.md §4.7/§6. At most one of the typed fields is non-nil, selected by
// Kind; the blocks, sync, list_addresses and peers kinds take no arguments
// and carry none.
type Command struct {
	Kind string `json:"kind"`

	Genesis       *GenesisCmd       `json:"genesis,omitempty"`
	CreateWallet  *CreateWalletCmd  `json:"create_wallet,omitempty"`
	GetAddress    *GetAddressCmd    `json:"get_address,omitempty"`
	GetBalance    *GetBalanceCmd    `json:"get_balance,omitempty"`
	Trans         *TransCmd         `json:"trans,omitempty"`
}

const (
	cmdGenesis       = "genesis"
	cmdBlocks        = "blocks"
	cmdSync          = "sync"
	cmdCreateWallet  = "create_wallet"
	cmdGetAddress    = "get_address"
	cmdGetBalance    = "get_balance"
	cmdListAddresses = "list_addresses"
	cmdTrans         = "trans"
	cmdPeers         = "peers"
)

// GenesisCmd creates the genesis block if the chain is empty.
type GenesisCmd struct {
	Address string `json:"address"`
}

// CreateWalletCmd creates a wallet named Name and registers it in the
// node's NamedWallets table (spec.md §4.7 plus the supplemented
// name-to-address mapping documented in SPEC_FULL.md).
type CreateWalletCmd struct {
	Name string `json:"name"`
}

// GetAddressCmd resolves a wallet name to its address.
type GetAddressCmd struct {
	Name string `json:"name"`
}

// GetBalanceCmd reports the balance locked to a raw address.
type GetBalanceCmd struct {
	Address string `json:"address"`
}

// TransCmd creates a signed transaction spending Amount from From to To,
// adds it to the mempool, and mines if the mempool has hit its threshold.
type TransCmd struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int32  `json:"amount"`
}

// ParseCommand decodes one JSON line into a Command, returning
// chainerr.ErrProtocol wrapped with context on malformed input, per
// spec.md §7's "malformed command-line JSON is logged and the loop
// continues".
func ParseCommand(line []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		return Command{}, fmt.Errorf("parse command: %w: %v", chainerr.ErrProtocol, err)
	}
	return cmd, nil
}
