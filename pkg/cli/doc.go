/*
Package cli provides command-line interface utilities for the mamba command.

The cli package includes output formatters, a status-line writer for
per-provider connectivity results, credential masking, and common CLI
helpers shared by the subcommands.

Output Formatting:

Commands that report structured results support text and JSON output:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Credential Masking:

Secrets are never printed whole. Use MaskCredential before displaying
any token or API key:

	fmt.Printf("token: %s\n", cli.MaskCredential(token))

Signal Handling:

For operations that should stop on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Pass ctx to cancellable operations
*/
package cli
