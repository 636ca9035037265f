// Command phasornet solves a schematic document from the command line and
// prints phasor node voltages, element currents and powers, optionally a
// Thevenin/Norton port equivalent, and optionally re-solves on file change.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/edalab/phasornet/pkg/analysis"
	"github.com/edalab/phasornet/pkg/netlist"
	"github.com/edalab/phasornet/pkg/schematic"
	"github.com/edalab/phasornet/pkg/solver"
	"github.com/edalab/phasornet/pkg/util"
	"github.com/edalab/phasornet/pkg/value"
)

var (
	freqFlag    = flag.Float64("freq", -1, "override the document frequency in Hz (-1 keeps the document's)")
	portFlag    = flag.String("port", "", "compute a port equivalent: nodeA,nodeB[,loadName]")
	backendFlag = flag.String("backend", "dense", "linear solver backend: dense or sparse")
	traceFlag   = flag.Bool("trace", false, "print the assembly and equation trace")
	jsonFlag    = flag.Bool("json", false, "emit results as JSON instead of text")
	watchFlag   = flag.Bool("watch", false, "watch the file and re-solve on change")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("Usage: phasornet [flags] <schematic.json|yaml>")
	}
	path := flag.Arg(0)

	backend, err := parseBackend(*backendFlag)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(path, backend); err != nil {
		log.Fatalf("solve failed: %v", err)
	}

	if *watchFlag {
		if err := watch(path, backend); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func parseBackend(name string) (solver.Backend, error) {
	switch name {
	case "dense":
		return solver.BackendDense, nil
	case "sparse":
		return solver.BackendSparse, nil
	default:
		return 0, fmt.Errorf("unknown backend %q (want dense or sparse)", name)
	}
}

func run(path string, backend solver.Backend) error {
	doc, err := schematic.ReadFile(path)
	if err != nil {
		return err
	}

	net, _, err := netlist.Build(doc)
	if err != nil {
		return err
	}

	freq := doc.FreqHz
	if *freqFlag >= 0 {
		freq = *freqFlag
	}

	res, err := solver.Solve(net, freq, solver.WithBackend(backend))
	if err != nil {
		if res != nil && *traceFlag {
			for _, line := range res.Trace {
				fmt.Fprintln(os.Stderr, line)
			}
		}
		return err
	}

	var rep *analysis.Report
	if *portFlag != "" {
		port, err := parsePort(*portFlag)
		if err != nil {
			return err
		}
		rep, err = analysis.Analyze(net, freq, port, solver.WithBackend(backend))
		if err != nil {
			return err
		}
	}

	if *jsonFlag {
		return printJSON(freq, res, rep)
	}
	printText(freq, res, rep)
	return nil
}

func parsePort(spec string) (analysis.Port, error) {
	parts := strings.Split(spec, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return analysis.Port{}, fmt.Errorf("port spec %q: want nodeA,nodeB[,loadName]", spec)
	}
	port := analysis.Port{
		NodeA: strings.TrimSpace(parts[0]),
		NodeB: strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 {
		port.LoadLabel = strings.TrimSpace(parts[2])
	}
	return port, nil
}

func sortedKeys(m map[string]complex128) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printText(freq float64, res *solver.Result, rep *analysis.Report) {
	fmt.Printf("f = %s\n", util.FormatFrequency(freq))

	if *traceFlag {
		fmt.Println("\nTrace:")
		for _, line := range res.Trace {
			fmt.Println("  " + line)
		}
	}

	fmt.Println("\nNode Voltages:")
	for _, name := range sortedKeys(res.NodeVoltages) {
		fmt.Printf("  %s\n", util.FormatPhasor("V("+name+")", res.NodeVoltages[name]))
	}

	fmt.Println("\nElement Currents:")
	for _, name := range sortedKeys(res.ElementCurrent) {
		fmt.Printf("  %s\n", util.FormatPhasor("I("+name+")", res.ElementCurrent[name]))
	}

	fmt.Println("\nElement Power:")
	for _, name := range sortedKeys(res.ElementPower) {
		fmt.Printf("  S(%s) = %s VA\n", name, value.Format(res.ElementPower[name]))
	}

	if rep != nil {
		fmt.Println("\nPort Equivalent:")
		for _, line := range rep.Render() {
			fmt.Println("  " + line)
		}
	}
}

type phasorJSON struct {
	Re       float64 `json:"re"`
	Im       float64 `json:"im"`
	Mag      float64 `json:"mag"`
	PhaseDeg float64 `json:"phaseDeg"`
}

func toPhasor(z complex128) phasorJSON {
	return phasorJSON{
		Re:       real(z),
		Im:       imag(z),
		Mag:      cmplx.Abs(z),
		PhaseDeg: cmplx.Phase(z) * 180 / math.Pi,
	}
}

func toPhasorMap(m map[string]complex128) map[string]phasorJSON {
	out := make(map[string]phasorJSON, len(m))
	for k, v := range m {
		out[k] = toPhasor(v)
	}
	return out
}

func printJSON(freq float64, res *solver.Result, rep *analysis.Report) error {
	out := struct {
		FreqHz         float64               `json:"freqHz"`
		Nodes          map[string]phasorJSON `json:"nodes"`
		ElementVoltage map[string]phasorJSON `json:"elementVoltage"`
		ElementCurrent map[string]phasorJSON `json:"elementCurrent"`
		ElementPower   map[string]phasorJSON `json:"elementPower"`
		Trace          []string              `json:"trace,omitempty"`
		Port           any                   `json:"port,omitempty"`
	}{
		FreqHz:         freq,
		Nodes:          toPhasorMap(res.NodeVoltages),
		ElementVoltage: toPhasorMap(res.ElementVoltage),
		ElementCurrent: toPhasorMap(res.ElementCurrent),
		ElementPower:   toPhasorMap(res.ElementPower),
	}
	if *traceFlag {
		out.Trace = res.Trace
	}
	if rep != nil {
		out.Port = struct {
			Vth             phasorJSON `json:"vth"`
			Zth             phasorJSON `json:"zth"`
			In              phasorJSON `json:"in"`
			LoadOptimal     phasorJSON `json:"loadOptimal"`
			PowerMax        float64    `json:"powerMax"`
			PowerApplicable bool       `json:"powerApplicable"`
		}{
			Vth:             toPhasor(rep.Vth),
			Zth:             toPhasor(rep.Zth),
			In:              toPhasor(rep.In),
			LoadOptimal:     toPhasor(rep.LoadOptimal),
			PowerMax:        rep.PowerMax,
			PowerApplicable: rep.PowerApplicable,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// watch re-solves whenever the schematic file is written. The parent
// directory is watched because editors typically replace the file on save.
func watch(path string, backend solver.Backend) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)
	log.Printf("watching %s", target)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			fmt.Println("\n--- file changed, re-solving ---")
			if err := run(path, backend); err != nil {
				log.Printf("solve failed: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}
