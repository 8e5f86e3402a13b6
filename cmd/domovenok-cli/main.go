// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command domovenok-cli is a terminal client for the chat server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// userIDFlag and topicFlag hold flag values shared by the ask and chat
// commands.
var (
	userIDFlag string
	topicFlag  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "domovenok-cli",
		Short: "Talk to the Domovenok chat server from the terminal",
	}
	rootCmd.PersistentFlags().StringVar(&userIDFlag, "user", "", "User ID for the session (defaults to a generated one)")

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand,
	}

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Run:   runChatCommand,
	}
	chatCmd.Flags().StringVar(&topicFlag, "topic", "", "Steer the session topic before chatting (e.g. showroom)")

	rootCmd.AddCommand(askCmd, chatCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
