// Package cli implements the hostwatch command-line interface.
//
// Each Cobra command is a thin shell around a *Command function that takes
// its inputs explicitly (writer, flags, args) so tests can drive it without
// going through os.Args.
//
// # Command Structure
//
//	hostwatch watch [--user id]...   - Monitor targets until interrupted
//	hostwatch check [user-id]...     - Take one sample per target and exit
//	hostwatch config show            - Print the effective config
//	hostwatch config init            - Write a commented starter config
//	hostwatch config validate        - Check the config for mistakes
//	hostwatch doctor                 - Diagnose config, SSH and targets
//	hostwatch version                - Print build information
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color) live on the root command.
// The config file is resolved the same way for every command: --config,
// then ./hostwatch.yaml, then ~/.config/hostwatch/config.yaml, with
// HOSTWATCH_* environment variables layered on top.
package cli
