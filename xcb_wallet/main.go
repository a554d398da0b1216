/*
Command-line wallet for Core Coin nodes.

	xcb_wallet generate
	xcb_wallet address -k keystore/<file>
	xcb_wallet balance cb08095e7baea6a6c7c4c2dfeb977efac326af552d87
	xcb_wallet send -k keystore/<file> --to alice.xcb --amount "1.5 core"
	xcb_wallet sign -k keystore/<file> "some message"
	xcb_wallet verify --address cb08... --signature 0x... "some message"
	xcb_wallet book add alice cb08...

Settings shared by all commands come from the environment, with the "XCB"
prefix: XCB_RPC_URL, XCB_NETWORK, XCB_KEYSTORE_DIR, XCB_PASSWORD,
XCB_ADDRESS_BOOK, XCB_TIMEOUT. Persistent flags override them.
*/
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Set using build flags.
var build = "develop"

func main() {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	log, err := newLogger("XCB_WALLET", level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, level, os.Args[1:]); err != nil {
		log.Debugw("command failed", "ERROR", fmt.Sprintf("%+v", err))
		fmt.Fprintln(os.Stderr, "error:", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger, level zap.AtomicLevel, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	state := &app{cfg: cfg, log: log, level: level}
	defer state.close()

	root := newRootCmd(state)
	root.SetArgs(args)
	return root.Execute()
}

// Logs go to stderr so that stdout carries only command output.
func newLogger(service string, level zap.AtomicLevel) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.Level = level
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]interface{}{
		"service": service,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}
	return log.Sugar(), nil
}
