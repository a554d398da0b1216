package xcb

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

/*
Identifies a network by its numeric id. Besides the id, a network determines the
two-character prefix of its addresses: "cb" for Mainnet, "ab" for Devin, and
"ce" for every private network.
*/
type Network uint64

const (
	Mainnet Network = 1
	Devin   Network = 3
)

// Address prefixes.
const (
	PrefixMainnet = "cb"
	PrefixDevin   = "ab"
	PrefixPrivate = "ce"
)

// Constructs a private network. Ids 1 and 3 are taken by the public networks.
func Private(id uint64) Network { return Network(id) }

func NetworkFromID(id uint64) Network { return Network(id) }

func (self Network) ID() uint64 { return uint64(self) }

func (self Network) IsPrivate() bool { return self != Mainnet && self != Devin }

// Two lowercase hex characters that lead every address on this network.
func (self Network) Prefix() string {
	switch self {
	case Mainnet:
		return PrefixMainnet
	case Devin:
		return PrefixDevin
	}
	return PrefixPrivate
}

func (self Network) prefixByte() byte {
	switch self {
	case Mainnet:
		return 0xcb
	case Devin:
		return 0xab
	}
	return 0xce
}

func (self Network) String() string {
	switch self {
	case Mainnet:
		return "mainnet"
	case Devin:
		return "devin"
	}
	return "private-" + strconv.FormatUint(uint64(self), 10)
}

/*
Parses a network name: "mainnet", "devin", "private-<id>", or a bare numeric
id.
*/
func ParseNetwork(input string) (Network, error) {
	str := strings.ToLower(strings.TrimSpace(input))
	switch str {
	case "mainnet":
		return Mainnet, nil
	case "devin":
		return Devin, nil
	}

	str = strings.TrimPrefix(str, "private-")
	id, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, errors.Errorf("unknown network %q", input)
	}
	return Network(id), nil
}

/*
Network for an address prefix. Private networks share one prefix, so "ce" yields
Private(0): the id itself can't be recovered from an address.
*/
func NetworkFromPrefix(prefix string) (Network, error) {
	switch strings.ToLower(prefix) {
	case PrefixMainnet:
		return Mainnet, nil
	case PrefixDevin:
		return Devin, nil
	case PrefixPrivate:
		return Private(0), nil
	}
	return 0, errors.Errorf("unknown network prefix %q", prefix)
}

func (self Network) MarshalText() ([]byte, error) { return []byte(self.String()), nil }

func (self *Network) UnmarshalText(input []byte) error {
	out, err := ParseNetwork(string(input))
	if err != nil {
		return err
	}
	*self = out
	return nil
}

/*
Expected block time. Used as the default polling interval for pending
transactions.
*/
func (self Network) AverageBlocktime() time.Duration {
	return defaultPollInterval
}

/*
Block explorer endpoints, if any: the API root and the web root. Private
networks have none.
*/
func (self Network) BlockindexURLs() (api string, web string, ok bool) {
	switch self {
	case Mainnet:
		return "https://blockindex.net/api/v2", "https://blockindex.net", true
	case Devin:
		return "https://devin.blockindex.net/api/v2", "https://devin.blockindex.net", true
	}
	return "", "", false
}
