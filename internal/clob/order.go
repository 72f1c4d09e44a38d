package clob

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/evetabi/polyboard/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Order signing
// ──────────────────────────────────────────────────────────────────────────────

const (
	orderDomainName    = "Polymarket CTF Exchange"
	orderDomainVersion = "1"
)

const (
	orderSideBuy  = 0
	orderSideSell = 1
)

// signatureTypeEOA marks orders signed directly by an externally-owned account.
const signatureTypeEOA = 0

const zeroAddress = "0x0000000000000000000000000000000000000000"

// signedOrder is the wire form of a signed order.
type signedOrder struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// orderRequest is the POST /order body.
type orderRequest struct {
	Order     signedOrder `json:"order"`
	Owner     string      `json:"owner"`
	OrderType string      `json:"orderType"`
}

// contractConfig names the on-chain contracts an order is signed against.
type contractConfig struct {
	Exchange         string
	Collateral       string
	ConditionalToken string
}

// buildSignedOrder converts OrderArgs into a signed wire order: rounds price
// and size to the market's tick-size rules, converts amounts to 1e6 token
// decimals, and signs the EIP-712 Order struct.
func (c *Client) buildSignedOrder(args OrderArgs, tickSize float64, negRisk bool) (signedOrder, error) {
	rc := roundingConfig(tickSize)
	price := roundNormal(args.Price, rc.price)
	if !priceValid(price, tickSize) {
		return signedOrder{}, fmt.Errorf("price %f invalid for tick size %f", price, tickSize)
	}

	sideValue := orderSideBuy
	if args.Side == domain.SideSell {
		sideValue = orderSideSell
	}

	var makerAmount, takerAmount int64
	if sideValue == orderSideBuy {
		rawTaker := roundDown(args.Size, rc.size)
		rawMaker := normalizeAmount(rawTaker*price, rc.amount)
		makerAmount = toTokenDecimals(rawMaker)
		takerAmount = toTokenDecimals(rawTaker)
	} else {
		rawMaker := roundDown(args.Size, rc.size)
		rawTaker := normalizeAmount(rawMaker*price, rc.amount)
		makerAmount = toTokenDecimals(rawMaker)
		takerAmount = toTokenDecimals(rawTaker)
	}

	tokenID, ok := new(big.Int).SetString(args.TokenID, 10)
	if !ok {
		return signedOrder{}, fmt.Errorf("invalid token id %q", args.TokenID)
	}

	salt := big.NewInt(randomSalt())
	maker := c.address.Hex()

	message := map[string]any{
		"salt":          salt,
		"maker":         maker,
		"signer":        maker,
		"taker":         zeroAddress,
		"tokenId":       tokenID,
		"makerAmount":   big.NewInt(makerAmount),
		"takerAmount":   big.NewInt(takerAmount),
		"expiration":    big.NewInt(args.Expiration),
		"nonce":         big.NewInt(args.Nonce),
		"feeRateBps":    big.NewInt(int64(args.FeeRateBps)),
		"side":          big.NewInt(int64(sideValue)),
		"signatureType": big.NewInt(int64(signatureTypeEOA)),
	}

	sig, err := c.signOrderMessage(message, negRisk)
	if err != nil {
		return signedOrder{}, err
	}

	sideLabel := string(domain.SideBuy)
	if sideValue == orderSideSell {
		sideLabel = string(domain.SideSell)
	}

	return signedOrder{
		Salt:          salt.String(),
		Maker:         maker,
		Signer:        maker,
		Taker:         zeroAddress,
		TokenID:       tokenID.String(),
		MakerAmount:   fmt.Sprintf("%d", makerAmount),
		TakerAmount:   fmt.Sprintf("%d", takerAmount),
		Expiration:    fmt.Sprintf("%d", args.Expiration),
		Nonce:         fmt.Sprintf("%d", args.Nonce),
		FeeRateBps:    fmt.Sprintf("%d", args.FeeRateBps),
		Side:          sideLabel,
		SignatureType: signatureTypeEOA,
		Signature:     sig,
	}, nil
}

// signOrderMessage signs the Order struct against the exchange contract for
// the client's chain.
func (c *Client) signOrderMessage(message map[string]any, negRisk bool) (string, error) {
	cfg, err := contractConfigForChain(c.chainID, negRisk)
	if err != nil {
		return "", err
	}
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "salt", Type: "uint256"},
				{Name: "maker", Type: "address"},
				{Name: "signer", Type: "address"},
				{Name: "taker", Type: "address"},
				{Name: "tokenId", Type: "uint256"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
				{Name: "side", Type: "uint8"},
				{Name: "signatureType", Type: "uint8"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              orderDomainName,
			Version:           orderDomainVersion,
			ChainId:           ethmath.NewHexOrDecimal256(c.chainID),
			VerifyingContract: cfg.Exchange,
		},
		Message: message,
	}
	return signTypedData(c.privateKey, typedData)
}

// contractConfigForChain returns the exchange contracts for a chain, switching
// to the neg-risk exchange when the market requires it.
func contractConfigForChain(chainID int64, negRisk bool) (contractConfig, error) {
	configs := map[int64]contractConfig{
		137: {
			Exchange:         "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E",
			Collateral:       "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
			ConditionalToken: "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
		},
		80002: {
			Exchange:         "0xdFE02Eb6733538f8Ea35D585af8DE5958AD99E40",
			Collateral:       "0x9c4e1703476e875070ee25b56a58b008cfb8fa78",
			ConditionalToken: "0x69308FB512518e39F9b16112fA8d994F4e2Bf8bB",
		},
	}
	negRiskConfigs := map[int64]contractConfig{
		137: {
			Exchange:         "0xC5d563A36AE78145C45a50134d48A1215220f80a",
			Collateral:       "0x2791bca1f2de4661ed88a30c99a7a9449aa84174",
			ConditionalToken: "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
		},
		80002: {
			Exchange:         "0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296",
			Collateral:       "0x9c4e1703476e875070ee25b56a58b008cfb8fa78",
			ConditionalToken: "0x69308FB512518e39F9b16112fA8d994F4e2Bf8bB",
		},
	}
	if negRisk {
		if cfg, ok := negRiskConfigs[chainID]; ok {
			return cfg, nil
		}
	} else if cfg, ok := configs[chainID]; ok {
		return cfg, nil
	}
	return contractConfig{}, fmt.Errorf("invalid chainID: %d", chainID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Rounding
// ──────────────────────────────────────────────────────────────────────────────

// roundConfig holds the decimal-digit budgets for a tick size.
type roundConfig struct {
	price  int
	size   int
	amount int
}

// roundingConfig returns the digit budgets matching a tick size.
func roundingConfig(tickSize float64) roundConfig {
	switch fmt.Sprintf("%.4f", tickSize) {
	case "0.1000":
		return roundConfig{price: 1, size: 2, amount: 3}
	case "0.0100":
		return roundConfig{price: 2, size: 2, amount: 4}
	case "0.0010":
		return roundConfig{price: 3, size: 2, amount: 5}
	case "0.0001":
		return roundConfig{price: 4, size: 2, amount: 6}
	default:
		return roundConfig{price: 2, size: 2, amount: 4}
	}
}

func roundDown(value float64, digits int) float64 {
	mult := math.Pow(10, float64(digits))
	return math.Floor(value*mult) / mult
}

func roundNormal(value float64, digits int) float64 {
	mult := math.Pow(10, float64(digits))
	return math.Round(value*mult) / mult
}

func roundUp(value float64, digits int) float64 {
	mult := math.Pow(10, float64(digits))
	return math.Ceil(value*mult) / mult
}

// normalizeAmount rounds an order amount into its digit budget without
// undershooting the exact product.
func normalizeAmount(value float64, digits int) float64 {
	fractional := value - math.Floor(value)
	if fractional == 0 {
		return value
	}
	value = roundUp(value, digits+4)
	if decimalPlaces(value) > digits {
		value = roundDown(value, digits)
	}
	return value
}

// decimalPlaces returns the count of significant decimal places.
func decimalPlaces(value float64) int {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", value), "0"), ".")
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		return len(s) - idx - 1
	}
	return 0
}

// toTokenDecimals converts a unit amount into 1e6 token decimals.
func toTokenDecimals(value float64) int64 {
	converted := value * 1e6
	if decimalPlaces(converted) > 0 {
		converted = roundNormal(converted, 0)
	}
	return int64(converted)
}

// priceValid reports whether a price sits inside the tradable band for the
// tick size.
func priceValid(price, tickSize float64) bool {
	return price >= tickSize && price <= 1.0-tickSize
}

// randomSalt generates a random order salt, falling back to the clock when
// crypto/rand is unavailable.
func randomSalt() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err == nil {
		return int64(binary.BigEndian.Uint64(buf[:]) >> 1)
	}
	return time.Now().UnixNano()
}
