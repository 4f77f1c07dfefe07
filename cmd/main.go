/*
Copyright 2024 Fleetpay Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fleetpay/fleetpay"
	"github.com/fleetpay/fleetpay/config"
	"github.com/fleetpay/fleetpay/database"
	"github.com/fleetpay/fleetpay/internal/notification"
)

// Fleetpay represents the CLI application, encapsulating the root Cobra command.
type Fleetpay struct {
	cmd *cobra.Command
}

// fleetpayInstance holds the runtime service instance and its configuration,
// shared by every subcommand.
type fleetpayInstance struct {
	service *fleetpay.Fleetpay
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the service instance
// before running any command.
func preRun(app *fleetpayInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("fleetpay.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newService, err := setupFleetpay(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.service = newService
		app.cnf = cnf

		return nil
	}
}

// setupFleetpay creates and initializes the service from the provided
// configuration, connecting to the data source on the way.
func setupFleetpay(cfg *config.Configuration) (*fleetpay.Fleetpay, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newService, err := fleetpay.NewFleetpay(db)
	if err != nil {
		return nil, fmt.Errorf("error creating fleetpay: %v", err)
	}
	return newService, nil
}

// NewCLI creates the command-line interface for the Fleetpay application.
func NewCLI() *Fleetpay {
	var configFile string
	b := &fleetpayInstance{}

	var rootCmd = &cobra.Command{
		Use:   "fleetpay",
		Short: "Bulk payment import and smart payment linking",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./fleetpay.json", "Configuration file for fleetpay")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))
	rootCmd.AddCommand(configCommands())

	return &Fleetpay{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w Fleetpay) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
