package clob

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/evetabi/polyboard/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Auth headers
// ──────────────────────────────────────────────────────────────────────────────

const (
	polyHeaderAddress    = "POLY_ADDRESS"
	polyHeaderSignature  = "POLY_SIGNATURE"
	polyHeaderTimestamp  = "POLY_TIMESTAMP"
	polyHeaderNonce      = "POLY_NONCE"
	polyHeaderAPIKey     = "POLY_API_KEY"
	polyHeaderPassphrase = "POLY_PASSPHRASE"
)

const (
	clobDomainName    = "ClobAuthDomain"
	clobDomainVersion = "1"
	clobAuthMessage   = "This message attests that I control the given wallet"
)

// level1Headers builds the EIP-712 wallet-signature headers used by the
// credential endpoints.
func (c *Client) level1Headers(nonce int64) (map[string]string, error) {
	timestamp := time.Now().Unix()
	signature, err := signClobAuth(c.privateKey, c.address.Hex(), c.chainID, timestamp, nonce)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		polyHeaderAddress:   c.address.Hex(),
		polyHeaderSignature: signature,
		polyHeaderTimestamp: fmt.Sprintf("%d", timestamp),
		polyHeaderNonce:     fmt.Sprintf("%d", nonce),
	}, nil
}

// level2Headers builds the HMAC headers used by authenticated data and order
// endpoints. The signature covers timestamp+method+path+body.
func (c *Client) level2Headers(method, path string, body []byte) (map[string]string, error) {
	if c.creds == nil {
		return nil, domain.ErrMissingCredentials
	}
	timestamp := time.Now().Unix()
	hmacSig, err := buildHMACSignature(c.creds.APISecret, timestamp, method, path, body)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		polyHeaderAddress:    c.address.Hex(),
		polyHeaderSignature:  hmacSig,
		polyHeaderTimestamp:  fmt.Sprintf("%d", timestamp),
		polyHeaderAPIKey:     c.creds.APIKey,
		polyHeaderPassphrase: c.creds.APIPassphrase,
	}, nil
}

// signClobAuth signs the CLOB auth attestation as EIP-712 typed data.
func signClobAuth(privateKey *ecdsa.PrivateKey, address string, chainID, timestamp, nonce int64) (string, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": {
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    clobDomainName,
			Version: clobDomainVersion,
			ChainId: ethmath.NewHexOrDecimal256(chainID),
		},
		Message: map[string]any{
			"address":   address,
			"timestamp": fmt.Sprintf("%d", timestamp),
			"nonce":     fmt.Sprintf("%d", nonce),
			"message":   clobAuthMessage,
		},
	}
	return signTypedData(privateKey, typedData)
}

// signTypedData hashes and signs EIP-712 typed data, returning a 0x-prefixed
// signature with the legacy 27/28 recovery id.
func signTypedData(privateKey *ecdsa.PrivateKey, typedData apitypes.TypedData) (string, error) {
	rawHash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(rawHash, privateKey)
	if err != nil {
		return "", err
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// buildHMACSignature computes the L2 request signature.
func buildHMACSignature(secret string, timestamp int64, method, requestPath string, body []byte) (string, error) {
	decoded, err := decodeBase64URL(secret)
	if err != nil {
		return "", err
	}
	message := fmt.Sprintf("%d%s%s", timestamp, method, requestPath)
	if len(body) > 0 {
		message += strings.ReplaceAll(string(body), "'", "\"")
	}
	mac := hmac.New(sha256.New, decoded)
	if _, err := mac.Write([]byte(message)); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// decodeBase64URL decodes URL-safe base64, tolerating missing padding.
func decodeBase64URL(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if pad := len(value) % 4; pad != 0 {
		value += strings.Repeat("=", 4-pad)
	}
	return base64.URLEncoding.DecodeString(value)
}
