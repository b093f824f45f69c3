package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	txcore "github.com/heliotx/cardano-txcore"
	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/fee"
	"github.com/heliotx/cardano-txcore/resolver"
)

var (
	minFeeA        uint64
	minFeeB        uint64
	priceMem       float64
	priceStep      float64
	refScriptPrice float64
	adaPerUtxoByte uint64
)

func main() {
	cli := makeCLI()

	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}

func makeCLI() *cobra.Command {
	cli := &cobra.Command{
		Use:   "cardano-tx",
		Short: "Decode and price Cardano transactions",
	}

	cli.AddCommand(decodeCmd())
	cli.AddCommand(feeCmd())

	return cli
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a transaction and print its hash and field summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := decodeTxHex(args[0])
			if err != nil {
				return err
			}

			hash, err := tx.Hash()
			if err != nil {
				return err
			}

			fmt.Printf("hash: %s\n", hash.Hex())
			fmt.Printf("inputs: %d\n", len(tx.Body().Inputs()))
			fmt.Printf("outputs: %d\n", len(tx.Body().Outputs()))
			fmt.Printf("fee: %d\n", tx.Body().Fee())
			return nil
		},
	}
}

func feeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee <hex>",
		Short: "Compute the deterministic fee for a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := decodeTxHex(args[0])
			if err != nil {
				return err
			}

			params, err := buildParams()
			if err != nil {
				return err
			}

			total, err := fee.ComputeTransactionFee(tx, resolver.NewMemory(nil), params)
			if err != nil {
				return err
			}

			fmt.Printf("fee: %d\n", total)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&minFeeA, "min-fee-a", 44, "lovelace per serialized byte")
	cmd.Flags().Uint64Var(&minFeeB, "min-fee-b", 155381, "constant lovelace fee component")
	cmd.Flags().Float64Var(&priceMem, "price-mem", 0.0577, "lovelace per execution-unit memory step")
	cmd.Flags().Float64Var(&priceStep, "price-step", 0.0000721, "lovelace per execution-unit CPU step")
	cmd.Flags().Float64Var(&refScriptPrice, "ref-script-price", 15.0, "lovelace per reference-script byte")
	cmd.Flags().Uint64Var(&adaPerUtxoByte, "ada-per-utxo-byte", 4310, "coin cost factor for output storage")

	return cmd
}

func buildParams() (*fee.ProtocolParameters, error) {
	mem, err := txcore.NewUnitIntervalFromFloat(priceMem)
	if err != nil {
		return nil, err
	}
	step, err := txcore.NewUnitIntervalFromFloat(priceStep)
	if err != nil {
		return nil, err
	}
	refScript, err := txcore.NewUnitIntervalFromFloat(refScriptPrice)
	if err != nil {
		return nil, err
	}
	return &fee.ProtocolParameters{
		MinFeeA:              minFeeA,
		MinFeeB:              minFeeB,
		PriceMem:             mem,
		PriceStep:            step,
		RefScriptCostPerByte: refScript,
		AdaPerUtxoByte:       adaPerUtxoByte,
	}, nil
}

func decodeTxHex(s string) (*txcore.Transaction, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return txcore.DecodeTransaction(cbor.NewReader(raw))
}

func init() {
	log.SetOutput(os.Stderr)
}
