package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/keymux/keymux/cmd/util"
	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/conn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for keymux servers and proxies",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// send performs one synchronous request and logs error-coded replies.
func send(test string, req *common.Message) *common.Message {
	reply := conn.SendRequestSync(client, req)
	if reply.Result == common.ResLocalError || reply.Result == common.ResRemoteError {
		log.Printf("(%s) - %s failed: %s\n", test, req.MsgType, reply.Err)
	}
	return reply
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for keymux servers and proxies")

	// Print configuration
	opts, err := util.GetConnectionOptions()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Target: %s\n", opts)
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	setResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("set")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				send("set", common.NewDeleteRequest(k))
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				send("set", common.NewSetRequest(getKey(counter), []byte("test")))
				counter++
			}
		})
	})

	results["set"] = setResult
	printResult("set", setResult)

	setLargeValueResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set-large") {
			return
		}

		// prepare large value
		largeValue := make([]byte, perfLargeValueSizeKB*1024)

		// prepare keys
		getKey, iter := getKeys("set-large")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				send("set-large", common.NewDeleteRequest(k))
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				send("set-large", common.NewSetRequest(getKey(counter), largeValue))
				counter++
			}
		})
	})

	results["set-large"] = setLargeValueResult
	printResult("set-large", setLargeValueResult)

	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("get")

		// set keys
		iter(func(k string) {
			send("get", common.NewSetRequest(k, []byte("test")))
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				send("get", common.NewDeleteRequest(k))
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				send("get", common.NewGetRequest(getKey(counter)))
				counter++
			}
		})
	})

	results["get"] = getResult
	printResult("get", getResult)

	getMissResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get-miss") {
			return
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := fmt.Sprintf("%s/get-miss-%d", perfKeyPrefix, counter%100)
				send("get-miss", common.NewGetRequest(key)) // not_found expected
				counter++
			}
		})
	})

	results["get-miss"] = getMissResult
	printResult("get-miss", getMissResult)

	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("delete")

		// set keys
		iter(func(k string) {
			send("delete", common.NewSetRequest(k, []byte("test")))
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				send("delete", common.NewDeleteRequest(getKey(counter)))
				counter++
			}
		})
	})

	results["delete"] = deleteResult
	printResult("delete", deleteResult)

	mixedUsageResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("mixed")

		// set keys
		iter(func(k string) {
			send("mixed", common.NewSetRequest(k, []byte("test")))
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				send("mixed", common.NewDeleteRequest(k))
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := getKey(counter)
				switch counter % 3 {
				case 0:
					send("mixed", common.NewSetRequest(key, []byte("test")))
				case 1:
					send("mixed", common.NewGetRequest(key))
				case 2:
					send("mixed", common.NewDeleteRequest(key))
				}
				counter++
			}
		})
	})

	results["mixed"] = mixedUsageResult
	printResult("mixed", mixedUsageResult)

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, opts); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, opts common.ConnectionOptions) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoint", "TimeoutSec", "Protocol",
		"Threads", "LargeValueSizeKB", "KeysCount",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			opts.Endpoint(),
			strconv.Itoa(opts.Timeout()),
			opts.Protocol.String(),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %v", err)
		}
	}

	return nil
}
