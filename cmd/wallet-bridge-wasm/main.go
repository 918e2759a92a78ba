//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/bridge"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/logger"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/solana"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
	"go.uber.org/zap"
)

// postMessage forwards to window.ReactNativeWebView.postMessage.
func postMessage(ctx context.Context, message []byte) error {
	webview := js.Global().Get("ReactNativeWebView")
	if webview.IsUndefined() || webview.IsNull() {
		return fmt.Errorf("window.ReactNativeWebView is not available")
	}
	webview.Call("postMessage", string(message))
	return nil
}

// promise runs fn on its own goroutine; js callbacks must not block.
func promise(fn func() (interface{}, error)) js.Value {
	executor := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			value, err := fn()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(value)
		}()
		return nil
	})
	p := js.Global().Get("Promise").New(executor)
	executor.Release()
	return p
}

func stringArg(args []js.Value, i int) (string, error) {
	if len(args) <= i || args[i].Type() != js.TypeString {
		return "", fmt.Errorf("argument %d must be a string", i)
	}
	return args[i].String(), nil
}

// registerCallbacks exposes the bridge to page scripts as window.solanaWallet
// and installs window.handleConnectResult for the host to call.
func registerCallbacks(b *bridge.Bridge, l *zap.Logger) {
	wallet := js.Global().Get("Object").New()
	wallet.Set("publicKey", b.PublicKey().String())

	wallet.Set("connect", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		opts := &types.ConnectOptions{}
		if len(args) > 0 && args[0].Type() == js.TypeObject {
			opts.OnlyIfTrusted = args[0].Get("onlyIfTrusted").Truthy()
		}
		return promise(func() (interface{}, error) {
			pub, err := b.Connect(context.Background(), opts)
			if err != nil {
				return nil, err
			}
			return pub.String(), nil
		})
	}))

	wallet.Set("disconnect", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		return promise(func() (interface{}, error) {
			return nil, b.Disconnect(context.Background())
		})
	}))

	// signTransaction takes and returns a base64 serialized legacy transaction
	wallet.Set("signTransaction", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		encoded, argErr := stringArg(args, 0)
		return promise(func() (interface{}, error) {
			if argErr != nil {
				return nil, argErr
			}
			raw, err := solana.DecodeBase64(encoded)
			if err != nil {
				return nil, err
			}
			tx, err := solana.TransactionFromBytes(raw)
			if err != nil {
				return nil, err
			}
			signed, err := b.SignTransaction(context.Background(), tx)
			if err != nil {
				return nil, err
			}
			out, err := signed.Serialize()
			if err != nil {
				return nil, err
			}
			return solana.EncodeBase64(out), nil
		})
	}))

	// signMessage takes a base64 message and resolves to a base64 signature
	wallet.Set("signMessage", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		encoded, argErr := stringArg(args, 0)
		return promise(func() (interface{}, error) {
			if argErr != nil {
				return nil, argErr
			}
			message, err := solana.DecodeBase64(encoded)
			if err != nil {
				return nil, err
			}
			sig, err := b.SignMessage(context.Background(), message)
			if err != nil {
				return nil, err
			}
			return solana.EncodeBase64(sig), nil
		})
	}))

	// args are read on the js goroutine; the returned call runs in a promise
	unimplemented := map[string]func(args []js.Value) func() error{
		"signAndSendTransaction": func(args []js.Value) func() error {
			return func() error {
				_, err := b.SignAndSendTransaction(context.Background(), nil, nil)
				return err
			}
		},
		"signAllTransactions": func(args []js.Value) func() error {
			return func() error {
				_, err := b.SignAllTransactions(context.Background(), nil)
				return err
			}
		},
		"signIn": func(args []js.Value) func() error {
			return func() error {
				_, err := b.SignIn(context.Background(), nil)
				return err
			}
		},
		"on": func(args []js.Value) func() error {
			event, _ := stringArg(args, 0)
			return func() error {
				return b.On(context.Background(), types.Event(event), nil)
			}
		},
		"off": func(args []js.Value) func() error {
			event, _ := stringArg(args, 0)
			return func() error {
				return b.Off(context.Background(), types.Event(event), nil)
			}
		},
	}
	for name, bind := range unimplemented {
		bind := bind
		wallet.Set(name, js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			call := bind(args)
			return promise(func() (interface{}, error) {
				return nil, call()
			})
		}))
	}

	js.Global().Set("solanaWallet", wallet)

	js.Global().Set("handleConnectResult", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) == 0 {
			return nil
		}
		payload := args[0]
		if payload.Type() != js.TypeString {
			payload = js.Global().Get("JSON").Call("stringify", payload)
		}
		if err := b.HandleResult(context.Background(), []byte(payload.String())); err != nil {
			l.Sugar().Warnw("Host result rejected", "error", err)
		}
		return nil
	}))
}

// main reads the wallet address from window.solanaWalletAddress, registers
// callbacks and blocks forever
func main() {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	if err != nil {
		l = zap.NewNop()
	}

	address := js.Global().Get("solanaWalletAddress")
	if address.Type() != js.TypeString {
		l.Sugar().Errorw("window.solanaWalletAddress is not set")
		return
	}

	b, err := bridge.NewBridge(address.String(), channel.OutboundFunc(postMessage), l)
	if err != nil {
		l.Sugar().Errorw("Failed to create bridge", "error", err)
		return
	}

	registerCallbacks(b, l)
	select {}
}
