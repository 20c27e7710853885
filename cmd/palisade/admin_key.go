// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bufio"
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-tty"
	pborman "github.com/pborman/uuid"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/palisadelabs/palisade/palisade"
)

func adminKeyPath(ctx *cli.Context) string {
	return filepath.Join(makeConfigDir(ctx), "admin.key")
}

func loadOrGenerateKey(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(path)
	if err == nil {
		return key, checkKeyAgainstCurve(key)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

// checkKeyAgainstCurve cross-checks a loaded key against the decred
// secp256k1 implementation. A key file corrupted into an off-curve
// scalar would otherwise surface much later, as an unusable admin
// account.
func checkKeyAgainstCurve(key *ecdsa.PrivateKey) error {
	priv := secp256k1.PrivKeyFromBytes(crypto.FromECDSA(key))
	if !bytes.Equal(priv.PubKey().SerializeUncompressed(), crypto.FromECDSAPub(&key.PublicKey)) {
		return errors.New("admin key failed the curve cross-check")
	}
	return nil
}

func adminKeyAction(ctx *cli.Context) error {
	hasImport := ctx.Bool(importKeyFlag.Name)
	hasExport := ctx.Bool(exportKeyFlag.Name)
	if hasImport && hasExport {
		return errors.Errorf("flag %s and %s are exclusive", importKeyFlag.Name, exportKeyFlag.Name)
	}

	keyPath := adminKeyPath(ctx)

	if !hasImport && !hasExport {
		key, err := loadOrGenerateKey(keyPath)
		if err != nil {
			return errors.Wrap(err, "load or generate admin key")
		}
		fmt.Println("Admin:", palisade.Address(crypto.PubkeyToAddress(key.PublicKey)))
		return nil
	}

	if hasImport {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			fmt.Println("Input JSON keystore (end with an empty line):")
		}
		keyJSON, err := readNonEmptyLines(os.Stdin)
		if err != nil {
			return errors.Wrap(err, "read keystore")
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(keyJSON, &raw); err != nil {
			return errors.Wrap(err, "decode keystore")
		}

		password, err := readPassword("Enter passphrase: ")
		if err != nil {
			return err
		}

		key, err := keystore.DecryptKey(keyJSON, password)
		if err != nil {
			return errors.Wrap(err, "decrypt keystore")
		}
		if err := checkKeyAgainstCurve(key.PrivateKey); err != nil {
			return err
		}
		if err := crypto.SaveECDSA(keyPath, key.PrivateKey); err != nil {
			return errors.Wrap(err, "save admin key")
		}
		fmt.Println("Admin key imported:", palisade.Address(key.Address))
		return nil
	}

	// export
	key, err := loadOrGenerateKey(keyPath)
	if err != nil {
		return errors.Wrap(err, "load or generate admin key")
	}

	password, err := readPassword("Enter passphrase: ")
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("non-empty passphrase required")
	}
	confirm, err := readPassword("Confirm passphrase: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passphrase confirmation mismatch")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return errors.Wrap(err, "generate keystore id")
	}
	keyJSON, err := keystore.EncryptKey(&keystore.Key{
		PrivateKey: key,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		Id:         pborman.UUID(id[:]),
	}, password, keystore.StandardScryptN, keystore.StandardScryptP)
	if err != nil {
		return errors.Wrap(err, "encrypt admin key")
	}
	fmt.Println(string(keyJSON))
	return nil
}

func readNonEmptyLines(f *os.File) ([]byte, error) {
	var buf bytes.Buffer
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		buf.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readPassword prompts on a fresh TTY so the passphrase never mixes
// with piped stdin; a non-terminal stdin reads one line instead.
func readPassword(prompt string) (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", errors.Wrap(err, "read passphrase")
		}
		return strings.TrimSpace(line), nil
	}

	t, err := tty.Open()
	if err != nil {
		return "", errors.Wrap(err, "open tty")
	}
	defer t.Close()

	fmt.Fprint(t.Output(), prompt)
	pass, err := t.ReadPasswordNoEcho()
	if err != nil {
		return "", errors.Wrap(err, "read passphrase")
	}
	return pass, nil
}
