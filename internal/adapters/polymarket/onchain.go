package polymarket

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

var balanceOfABI abi.ABI

func init() {
	var err error
	balanceOfABI, err = abi.JSON(strings.NewReader(`[{
		"name":"balanceOf","type":"function",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]
	}]`))
	if err != nil {
		panic("balanceOf abi: " + err.Error())
	}
}

// OnchainBalance lee el balance USDC.e del funder directamente de la cadena.
// Implementa BalanceReader. La lectura va contra el nodo RPC, no contra el
// exchange: es la fuente de verdad del capital disponible.
type OnchainBalance struct {
	rpc    *ethclient.Client
	funder common.Address
}

// NewOnchainBalance conecta al nodo RPC dado.
func NewOnchainBalance(rpcURL, funderAddress string) (*OnchainBalance, error) {
	if funderAddress == "" {
		return nil, fmt.Errorf("polymarket.OnchainBalance: funder address required")
	}
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("polymarket.OnchainBalance: dial rpc: %w", err)
	}
	return &OnchainBalance{
		rpc:    rpc,
		funder: common.HexToAddress(funderAddress),
	}, nil
}

// Balance devuelve el balance en unidades humanas (USDC tiene 6 decimales).
// El parámetro asset se acepta por contrato pero solo USDC está soportado.
func (b *OnchainBalance) Balance(ctx context.Context, asset string) (float64, error) {
	if asset != "" && !strings.EqualFold(asset, "USDC") {
		return 0, fmt.Errorf("polymarket.OnchainBalance: unsupported asset %q", asset)
	}

	callData, err := balanceOfABI.Pack("balanceOf", b.funder)
	if err != nil {
		return 0, fmt.Errorf("polymarket.OnchainBalance: pack: %w", err)
	}

	token := common.HexToAddress(usdcEAddress)
	result, err := b.rpc.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: callData,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("polymarket.OnchainBalance: rpc call: %w", err)
	}

	vals, err := balanceOfABI.Unpack("balanceOf", result)
	if err != nil || len(vals) == 0 {
		return 0, fmt.Errorf("polymarket.OnchainBalance: unpack: %w", err)
	}

	raw := vals[0].(*big.Int)
	bal, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), new(big.Float).SetFloat64(1e6)).Float64()
	return bal, nil
}
