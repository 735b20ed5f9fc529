// gatec is the author-side companion tool for the gate checker: it
// validates challenge definitions, derives the build-time constants, and
// time-seals the flag file until a release time.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gate/internal/challenge"
	"gate/internal/flagseal"
)

const usageText = `gatec - challenge authoring tool for the gate checker

Usage:
  gatec check --config <yaml>
  gatec derive --config <yaml> [--metadata <path>]
  gatec seal --until <time> [--flag <path>]
  gatec unseal [--flag <path>]

Options:
  --config <yaml>    challenge definition file
  --metadata <path>  write challenge metadata JSON
  --until <time>     RFC3339 timestamp for flag release
  --flag <path>      flag file location (default "flag")

gatec check validates a challenge definition.
gatec derive computes the checker constants and the accepted password.
gatec seal time-locks the flag file until the release time.
gatec unseal restores the flag file once the release time has passed.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usageText)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "check":
		handleCheck(os.Args[2:])
	case "derive":
		handleDerive(os.Args[2:])
	case "seal":
		handleSeal(os.Args[2:])
	case "unseal":
		handleUnseal(os.Args[2:])
	case "help", "--help", "-h":
		fmt.Println(usageText)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		fmt.Fprintln(os.Stderr, usageText)
		os.Exit(1)
	}
}

func loadConfig(path string) challenge.Config {
	if path == "" {
		fmt.Fprintln(os.Stderr, "error: --config is required")
		os.Exit(1)
	}

	cfg, err := challenge.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

func handleCheck(args []string) {
	checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := checkFlags.String("config", "", "challenge definition file")
	checkFlags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gatec check --config <yaml>")
		checkFlags.PrintDefaults()
	}
	checkFlags.Parse(args)

	cfg := loadConfig(*configPath)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("ok: %s (%d-byte plaintext, key 0x%02x)\n", cfg.Name, len(cfg.Plaintext), cfg.XORKey)
	os.Exit(0)
}

func handleDerive(args []string) {
	deriveFlags := flag.NewFlagSet("derive", flag.ExitOnError)
	configPath := deriveFlags.String("config", "", "challenge definition file")
	metadataPath := deriveFlags.String("metadata", "", "write challenge metadata JSON")
	deriveFlags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gatec derive --config <yaml> [--metadata <path>]")
		deriveFlags.PrintDefaults()
	}
	deriveFlags.Parse(args)

	cfg := loadConfig(*configPath)

	meta, err := cfg.Metadata()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("id: %s\nname: %s\nlength: %d\nxor_key: 0x%02x\ntarget_sum: %d\ntarget_prod: %d\npositions: %v\nencoded_password_hex: %s\n",
		meta.ID,
		meta.Name,
		meta.Length,
		meta.XORKey,
		meta.TargetSum,
		meta.TargetProd,
		meta.Positions,
		meta.EncodedPassword)

	if *metadataPath != "" {
		if err := challenge.WriteMetadata(*metadataPath, meta); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	os.Exit(0)
}

func handleSeal(args []string) {
	sealFlags := flag.NewFlagSet("seal", flag.ExitOnError)
	until := sealFlags.String("until", "", "RFC3339 timestamp for flag release")
	flagPath := sealFlags.String("flag", "flag", "flag file location")
	sealFlags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gatec seal --until <time> [--flag <path>]")
		sealFlags.PrintDefaults()
	}
	sealFlags.Parse(args)

	if *until == "" {
		fmt.Fprintln(os.Stderr, "error: --until is required")
		sealFlags.Usage()
		os.Exit(1)
	}

	releaseTime, err := flagseal.ParseReleaseTime(*until)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := flagseal.Seal(*flagPath, releaseTime, newDefaultDrandAuthority()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(flagseal.SealedPath(*flagPath))
	os.Exit(0)
}

func handleUnseal(args []string) {
	unsealFlags := flag.NewFlagSet("unseal", flag.ExitOnError)
	flagPath := unsealFlags.String("flag", "flag", "flag file location")
	unsealFlags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gatec unseal [--flag <path>]")
		unsealFlags.PrintDefaults()
	}
	unsealFlags.Parse(args)

	if err := flagseal.Unseal(context.Background(), *flagPath, newDefaultDrandAuthority()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(*flagPath)
	os.Exit(0)
}
