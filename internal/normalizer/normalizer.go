package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
)

// argument names per event kind, in positional order
var eventArguments = map[domain.EventKind][]string{
	domain.EventKindListed:            {"productId", "seller", "price", "metadataURI"},
	domain.EventKindBought:            {"productId", "buyer", "seller", "price"},
	domain.EventKindDeliveryConfirmed: {"productId", "buyer"},
	domain.EventKindEscrowReleased:    {"productId", "seller", "amount"},
	domain.EventKindDisputeRaised:     {"productId", "raisedBy"},
	domain.EventKindDisputeResolved:   {"productId", "favorBuyer", "resolver"},
}

// Normalizer maps raw transport payloads to domain.ChainEvent
type Normalizer struct {
	decimals int
}

// New creates a normalizer for a token with the given number of decimals
func New(decimals int) *Normalizer {
	if decimals < 0 {
		decimals = domain.DEFAULT_TOKEN_DECIMALS
	}
	return &Normalizer{decimals: decimals}
}

// Normalize converts a raw event of the given kind into a canonical chain event.
// Named arguments win over positional ones. Missing transaction metadata is left empty.
func (n *Normalizer) Normalize(raw *messaging.RawEvent, kind domain.EventKind) (*domain.ChainEvent, error) {
	names, ok := eventArguments[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEventKind, kind)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty %s event", domain.ErrMissingArgument, kind)
	}

	lookup := func(name string) (interface{}, bool) {
		if v, ok := raw.Named[name]; ok && v != nil {
			return v, true
		}
		for i, n := range names {
			if n == name && i < len(raw.Args) && raw.Args[i] != nil {
				return raw.Args[i], true
			}
		}
		return nil, false
	}

	idValue, ok := lookup("productId")
	if !ok {
		return nil, fmt.Errorf("%w: productId of %s", domain.ErrMissingArgument, kind)
	}
	productID, err := ParseProductID(idValue)
	if err != nil {
		return nil, err
	}

	ev := &domain.ChainEvent{
		Kind:           kind,
		ProductChainID: productID,
		TxHash:         txHash(raw),
		LogIndex:       raw.LogIndex,
		BlockNumber:    raw.BlockNumber,
	}

	// a listing needs its seller and a purchase its buyer; other parties are optional
	address := func(name string, required bool) (string, error) {
		v, ok := lookup(name)
		if !ok {
			if required {
				return "", fmt.Errorf("%w: %s of %s", domain.ErrMissingArgument, name, kind)
			}
			return "", nil
		}
		return parseAddress(v)
	}

	switch kind {
	case domain.EventKindListed, domain.EventKindBought, domain.EventKindEscrowReleased:
		if ev.Seller, err = address("seller", kind == domain.EventKindListed); err != nil {
			return nil, err
		}
	}
	switch kind {
	case domain.EventKindBought, domain.EventKindDeliveryConfirmed:
		if ev.Buyer, err = address("buyer", kind == domain.EventKindBought); err != nil {
			return nil, err
		}
	case domain.EventKindDisputeRaised:
		if ev.RaisedBy, err = address("raisedBy", false); err != nil {
			return nil, err
		}
	case domain.EventKindDisputeResolved:
		if ev.Resolver, err = address("resolver", false); err != nil {
			return nil, err
		}
		if v, ok := lookup("favorBuyer"); ok {
			favor, err := parseBool(v)
			if err != nil {
				return nil, err
			}
			ev.FavorBuyer = &favor
		}
	}

	amountName := "price"
	if kind == domain.EventKindEscrowReleased {
		amountName = "amount"
	}
	if v, ok := lookup(amountName); ok {
		wei, err := parseInteger(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidAmount, amountName, err)
		}
		ev.Amount = FormatUnits(wei, n.decimals)
	}

	if kind == domain.EventKindListed {
		if v, ok := lookup("metadataURI"); ok {
			ev.MetadataURI = fmt.Sprint(v)
		}
	}

	return ev, nil
}

// ParseProductID parses a contract product id. Strings are read as decimal;
// only an explicit 0x prefix selects hexadecimal.
func ParseProductID(v interface{}) (int64, error) {
	n, err := parseInteger(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidProductID, err)
	}
	if n.Sign() < 0 || !n.IsInt64() {
		return 0, fmt.Errorf("%w: %s out of range", domain.ErrInvalidProductID, n.String())
	}
	return n.Int64(), nil
}

// FormatUnits renders an integer amount with the given number of decimals,
// trimming trailing zeros but keeping at least one fractional digit ("1.0", "1.5", "0.000001").
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return ""
	}

	abs := new(big.Int).Abs(amount)
	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, base, new(big.Int))

	fraction := ""
	if decimals > 0 {
		digits := frac.String()
		if len(digits) < decimals {
			digits = strings.Repeat("0", decimals-len(digits)) + digits
		}
		fraction = strings.TrimRight(digits, "0")
	}
	if fraction == "" {
		fraction = "0"
	}

	sign := ""
	if amount.Sign() < 0 {
		sign = "-"
	}
	return sign + whole.String() + "." + fraction
}

func txHash(raw *messaging.RawEvent) string {
	if raw.TransactionHash != "" {
		return raw.TransactionHash
	}
	if raw.Transaction != nil {
		return raw.Transaction.Hash
	}
	return ""
}

func parseInteger(v interface{}) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(x), nil
	case big.Int:
		return new(big.Int).Set(&x), nil
	case int:
		return big.NewInt(int64(x)), nil
	case int32:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return nil, fmt.Errorf("non-integer number %v", x)
		}
		n, _ := big.NewFloat(x).Int(nil)
		return n, nil
	case json.Number:
		return parseIntegerString(x.String())
	case string:
		return parseIntegerString(x)
	case map[string]interface{}:
		// serialized big number objects, e.g. {"type":"BigNumber","hex":"0x07"}
		for _, key := range []string{"hex", "_hex"} {
			if h, ok := x[key].(string); ok {
				return parseIntegerString(h)
			}
		}
		return nil, fmt.Errorf("unsupported object %v", x)
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func parseIntegerString(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty string")
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}

	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func parseAddress(v interface{}) (string, error) {
	switch x := v.(type) {
	case common.Address:
		return x.Hex(), nil
	case *common.Address:
		if x == nil {
			return "", nil
		}
		return x.Hex(), nil
	case string:
		if x == "" {
			return "", nil
		}
		if !common.IsHexAddress(x) {
			return "", fmt.Errorf("%w: invalid address %q", domain.ErrMissingArgument, x)
		}
		return domain.NormalizeAddress(x), nil
	default:
		return "", fmt.Errorf("%w: unsupported address type %T", domain.ErrMissingArgument, v)
	}
}

func parseBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%w: invalid boolean %q", domain.ErrMissingArgument, x)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: unsupported boolean type %T", domain.ErrMissingArgument, v)
	}
}
