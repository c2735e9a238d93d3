package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chameleon-db/chameleon-mock/internal/admin"
	"github.com/chameleon-db/chameleon-mock/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a new chameleon-mock project",
	Long: `Create a project with a config file, an example schema, fixtures
and a replay script.

This will create:
  .chameleon-mock.yml   Main configuration file
  .chameleon-mock/      Admin directory (journal, reports)
  schema.yml            Entity schema
  fixtures/             Mock expectations
  scripts/              Replay scripts

If no directory is provided, initializes in current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		if len(args) > 0 {
			workDir = args[0]
			if err := os.MkdirAll(workDir, 0755); err != nil {
				return fmt.Errorf("failed to create project directory: %w", err)
			}
			printInfo("Creating new project in: %s", workDir)
		} else {
			printInfo("Initializing chameleon-mock in current directory: %s", workDir)
		}

		if _, err := os.Stat(filepath.Join(workDir, config.FileName)); err == nil {
			return fmt.Errorf("project already initialized at %s\nDelete %s to reinitialize", workDir, config.FileName)
		}

		factory := admin.NewManagerFactory(workDir)
		if err := factory.Initialize(); err != nil {
			return fmt.Errorf("failed to create admin structure: %w", err)
		}
		printSuccess("Created %s/ directory", admin.DirName)

		if err := factory.CreateConfigLoader().WriteTemplate(time.Now()); err != nil {
			return err
		}
		printSuccess("Created %s", config.FileName)

		files := []struct {
			path    string
			content string
		}{
			{"schema.yml", exampleSchema},
			{filepath.Join("fixtures", "contacts.yml"), exampleFixtures},
			{filepath.Join("scripts", "example.yml"), exampleScript},
		}
		for _, f := range files {
			path := filepath.Join(workDir, f.path)
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", filepath.Dir(f.path), err)
			}
			if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
				return fmt.Errorf("failed to create %s: %w", f.path, err)
			}
			printSuccess("Created %s", f.path)
		}

		fmt.Println()
		printSuccess("Project initialized successfully!")
		fmt.Println()
		fmt.Println("Next steps:")
		if len(args) > 0 {
			fmt.Printf("  cd %s\n", args[0])
		}
		fmt.Println("  chameleon-mock validate")
		fmt.Println("  chameleon-mock replay scripts/example.yml")
		fmt.Println("  chameleon-mock query Contact --filter Name:eq:Alice")
		fmt.Println()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const exampleSchema = `entities:
  - name: Contact
    fields:
      Id: {type: UUID, primary_key: true}
      Name: {type: String}
      Email: {type: String, unique: true}
      Age: {type: Int, nullable: true}
      Active: {type: Bool, default: true}
    relations:
      orders: {kind: HasMany, target_entity: Order, foreign_key: ContactId}

  - name: Order
    fields:
      Id: {type: Int, primary_key: true}
      ContactId: {type: UUID}
      Total: {type: Decimal}
      Status: {type: String, default: new}
`

const exampleFixtures = `default_values:
  - entity: Order
    values: {Status: new, Total: 0}

items:
  - entity: Contact
    filters:
      - {field: Name, op: eq, value: Alice}
    rows:
      - {Name: Alice, Email: alice@example.com, Age: 30}
  - entity: Contact
    rows: []

scalars:
  - entity: Order
    aggregation: count
    filters:
      - {field: Status, value: new}
    value: 2

saving:
  - entity: Order
    operation: insert
    values: {Status: new}
  - entity: Order
    operation: delete
    filters:
      - {field: Id, value: 7}
`

const exampleScript = `name: example
steps:
  - default_values: Order
  - name: find alice
    select:
      entity: Contact
      filters:
        - {field: Name, value: Alice}
  - name: unknown contact
    select:
      entity: Contact
      filters:
        - {field: Name, value: Bob}
  - name: count new orders
    select:
      entity: Order
      aggregate: {function: count}
      filters:
        - {field: Status, value: new}
  - batch:
      - {operation: insert, entity: Order, values: {Status: new, Total: 12.5}}
      - {operation: delete, entity: Order, filters: [{field: Id, value: 7}]}
`
