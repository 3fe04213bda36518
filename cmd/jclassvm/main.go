// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/saferwall/jclassvm/archive"
	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/gfunction"
	"github.com/saferwall/jclassvm/trace"
	"github.com/saferwall/jclassvm/vm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

func prettyPrint(buff []byte) string {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, buff, "", "\t"); err != nil {
		log.Println("JSON parse error: ", err)
		return string(buff)
	}
	return prettyJSON.String()
}

// loadClasses loads filename as either a standalone .class file or a jar
// archive, returning the decoded class map, the jar's declared Main-Class (if
// any, empty for a standalone .class file), and a closer for the archive
// case (a no-op for a standalone class file).
func loadClasses(filename string) (map[string]*classfile.ClassFile, string, func() error, error) {
	if strings.HasSuffix(filename, ".class") {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, "", nil, err
		}
		cf, err := classfile.Decode(data)
		if err != nil {
			return nil, "", nil, err
		}
		return map[string]*classfile.ClassFile{cf.ThisClassName: cf}, "", func() error { return nil }, nil
	}

	opts := &archive.Options{}
	if verbose {
		opts.Tracer = trace.New(os.Stderr, loggingLevel())
	}
	a, err := archive.Open(filename, opts)
	if err != nil {
		return nil, "", nil, err
	}
	return a.Classes, a.Manifest.MainClass, a.Close, nil
}

func runMain(cmd *cobra.Command, args []string) {
	filename := args[0]
	classes, manifestMainClass, closeFn, err := loadClasses(filename)
	if err != nil {
		log.Fatalf("loading %s: %v", filename, err)
	}
	defer closeFn()

	mainClass, _ := cmd.Flags().GetString("main")
	if mainClass == "" {
		mainClass = manifestMainClass
	}
	if mainClass == "" {
		mainClass = soleClassName(classes)
	}
	if mainClass == "" {
		log.Fatal("no main class given and none could be inferred; pass --main")
	}
	mainClass = strings.ReplaceAll(mainClass, ".", "/")

	var tracer trace.Tracer
	if verbose {
		tracer = trace.New(os.Stderr, loggingLevel())
	}
	registry := gfunction.NewRegistry()
	m := vm.New(classes, &vm.Config{Natives: registry, Tracer: tracer})
	gfunction.Seed(m)

	if err := m.RunMain(mainClass); err != nil {
		log.Fatalf("%v", err)
	}
}

// soleClassName returns the single class name in classes when there is
// exactly one, so --main can be omitted for a standalone .class file.
func soleClassName(classes map[string]*classfile.ClassFile) string {
	if len(classes) != 1 {
		return ""
	}
	for name := range classes {
		return name
	}
	return ""
}

func dumpFile(filename string, cmd *cobra.Command) {
	classes, _, closeFn, err := loadClasses(filename)
	if err != nil {
		log.Printf("error while opening file: %s, reason: %s", filename, err)
		return
	}
	defer closeFn()

	wantMethods, _ := cmd.Flags().GetBool("methods")
	wantFields, _ := cmd.Flags().GetBool("fields")
	wantAll, _ := cmd.Flags().GetBool("all")

	for name, cf := range classes {
		fmt.Printf("=== %s ===\n", name)
		if wantAll {
			b, _ := json.Marshal(cf)
			fmt.Println(prettyPrint(b))
			continue
		}
		if wantFields {
			b, _ := json.Marshal(cf.Fields)
			fmt.Println(prettyPrint(b))
		}
		if wantMethods {
			b, _ := json.Marshal(cf.Methods)
			fmt.Println(prettyPrint(b))
		}
	}
}

func dump(cmd *cobra.Command, args []string) {
	dumpFile(args[0], cmd)
}

func loggingLevel() logrus.Level {
	if verbose {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "jclassvm",
		Short: "A Java class file loader and bytecode interpreter",
		Long:  "jclassvm decodes .class files and jar archives and runs a minimal subset of the JVM bytecode interpreter, built for speed and clarity by Saferwall",
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Long:  "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("jclassvm version 0.1.0")
		},
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dumps a class file or jar archive",
		Long:  "Dumps the decoded structure of a .class file or every class in a jar archive",
		Args:  cobra.ExactArgs(1),
		Run:   dump,
	}
	dumpCmd.Flags().Bool("methods", false, "Dump method table")
	dumpCmd.Flags().Bool("fields", false, "Dump field table")
	dumpCmd.Flags().Bool("all", false, "Dump the full decoded class file")

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Runs a class file or jar archive's main method",
		Long:  "Loads a .class file or jar archive and executes public static void main(String[])",
		Args:  cobra.ExactArgs(1),
		Run:   runMain,
	}
	runCmd.Flags().String("main", "", "Main class to run (internal/slash form or dotted form); defaults to the jar manifest's Main-Class, or to the only class when there is just one")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
