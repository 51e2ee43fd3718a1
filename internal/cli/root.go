// Package cli 命令行前端: 收集参数、轮询扫描进度、渲染结果
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"PortScanGo/internal/config"
	"PortScanGo/internal/portscan"
)

// 构建时通过 ldflags 注入
var (
	Version = "dev"
	Commit  = "none"
)

// 轮询进度的间隔
const pollInterval = 100 * time.Millisecond

type rootFlags struct {
	configPath  string
	verbose     bool
	jsonOutput  bool
	printConfig bool
	cfg         config.Config
}

// NewRootCommand 创建根命令
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{cfg: config.Default()}

	cmd := &cobra.Command{
		Use:   "portScanGo",
		Short: "并发 TCP 全连接端口扫描器",
		Long: `portScanGo 使用固定数量的 worker 对目标主机的端口区间做 TCP 全连接扫描，
实时显示进度和发现的开放端口，结束后输出排序后的开放端口列表和耗时。

示例:
  portScanGo -i 192.168.1.1 -s 1 -e 1024 -t 200
  portScanGo -c scan.yaml --json
  portScanGo -i 10.0.0.5 -e 1024 --print-config > scan.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			if flags.printConfig {
				return printConfig(cmd.OutOrStdout(), cfg)
			}
			logger, err := newLogger(flags.verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			scanner := portscan.NewScanner(cfg.ScanConfig(), portscan.WithLogger(logger))
			return run(cmd.Context(), scanner, cmd.OutOrStdout(), flags.jsonOutput)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.cfg.Target, "ip", "i", config.DefaultTarget, "目标IP地址或主机名")
	f.IntVarP(&flags.cfg.Start, "start", "s", config.DefaultStart, "起始端口")
	f.IntVarP(&flags.cfg.End, "end", "e", config.DefaultEnd, "结束端口")
	f.IntVarP(&flags.cfg.Threads, "threads", "t", config.DefaultThreads, "并发数")
	f.DurationVar(&flags.cfg.Timeout, "timeout", config.DefaultTimeout, "连接超时")
	f.StringVarP(&flags.configPath, "config", "c", "", "YAML 配置文件")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "输出调试日志到 stderr")
	f.BoolVar(&flags.jsonOutput, "json", false, "以 JSON 输出扫描报告")
	f.BoolVar(&flags.printConfig, "print-config", false, "输出合并后的 YAML 配置后退出，不执行扫描")
	return cmd
}

// resolveConfig 默认值 < 配置文件 < 显式指定的参数
func resolveConfig(cmd *cobra.Command, flags *rootFlags) (config.Config, error) {
	if flags.configPath == "" {
		return flags.cfg, nil
	}
	cfg, err := config.Load(flags.configPath, config.Default())
	if err != nil {
		return cfg, err
	}
	f := cmd.Flags()
	if f.Changed("ip") {
		cfg.Target = flags.cfg.Target
	}
	if f.Changed("start") {
		cfg.Start = flags.cfg.Start
	}
	if f.Changed("end") {
		cfg.End = flags.cfg.End
	}
	if f.Changed("threads") {
		cfg.Threads = flags.cfg.Threads
	}
	if f.Changed("timeout") {
		cfg.Timeout = flags.cfg.Timeout
	}
	return cfg, nil
}

// printConfig 输出的内容可以直接作为 -c 的配置文件
func printConfig(w io.Writer, cfg config.Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopmentConfig().Build()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return zc.Build()
}

// run 扫描在后台 goroutine 中执行，这里按固定间隔轮询进度
func run(ctx context.Context, scanner *portscan.Scanner, w io.Writer, jsonOutput bool) error {
	cfg := scanner.Config()
	// 先校验，避免进度条在无效输入时闪现
	if _, err := portscan.Validate(cfg); err != nil {
		return err
	}

	type result struct {
		report *portscan.Report
		err    error
	}
	done := make(chan result, 1)

	if !jsonOutput {
		color.New(color.FgCyan).Fprintf(w, "--- 开始扫描 %s [端口 %s] ---\n", cfg.Target, cfg.Range)
		color.New(color.FgCyan).Fprintf(w, "--- 并发数: %d | 超时: %s ---\n", cfg.Workers, cfg.Timeout)
	}

	go func() {
		report, err := scanner.Execute(ctx)
		done <- result{report, err}
	}()

	barOut := w
	if jsonOutput {
		barOut = io.Discard
	}
	bar := newProgressBar(cfg.Range.Size(), barOut)
	live := newLivePrinter(barOut, cfg.Target)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case res := <-done:
			if res.err != nil {
				return res.err
			}
			_ = bar.Set(res.report.Total)
			live.update(bar, res.report.OpenPorts)
			_ = bar.Finish()
			if jsonOutput {
				return writeJSON(w, res.report)
			}
			fmt.Fprintln(w)
			writeReport(w, res.report)
			return nil
		case <-ticker.C:
			_ = bar.Set(scanner.Progress().Completed)
			live.update(bar, scanner.OpenPorts())
		}
	}
}

func newProgressBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan][扫描中][reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Execute 运行根命令并根据错误类型设置退出码
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "[-]%v\n", err)
		if errors.Is(err, portscan.ErrInvalidConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
