package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/any-hub/api-replay/internal/cache"
	"github.com/any-hub/api-replay/internal/config"
	"github.com/any-hub/api-replay/internal/diagnostics"
	"github.com/any-hub/api-replay/internal/fingerprint"
	"github.com/any-hub/api-replay/internal/logging"
	"github.com/any-hub/api-replay/internal/proxy"
	"github.com/any-hub/api-replay/internal/upstream"
	"github.com/any-hub/api-replay/internal/version"
)

// configEnv 可覆盖默认配置路径，--config 优先级更高。
const configEnv = "API_REPLAY_CONFIG"

const shutdownTimeout = 10 * time.Second

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	explicit    bool
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute 构建命令树并执行，返回退出码：0 成功，1 运行失败，2 参数错误。
func execute(ctx context.Context, args []string) int {
	code := 0
	root := newRootCmd(ctx, &code)
	root.SetArgs(args)
	root.SetOut(stdOut)
	root.SetErr(stdErr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stdErr, err.Error())
		return 2
	}
	return code
}

func newRootCmd(ctx context.Context, code *int) *cobra.Command {
	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	options := func(cmd *cobra.Command) cliOptions {
		opts := resolveConfigPath(configFlag, cmd.Flags().Changed("config"))
		opts.checkOnly = checkOnly
		opts.showVersion = showVer
		return opts
	}

	root := &cobra.Command{
		Use:           "api-replay",
		Short:         "Record and replay HTTP API responses",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			*code = run(ctx, options(cmd))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 "+configEnv+" 覆盖）")
	root.Flags().BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	root.Flags().BoolVar(&showVer, "version", false, "显示版本信息")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the replay proxy (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				opts := options(cmd)
				opts.checkOnly, opts.showVersion = false, false
				*code = run(ctx, opts)
				return nil
			},
		},
		&cobra.Command{
			Use:   "check-config",
			Short: "Validate the configuration and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				opts := options(cmd)
				opts.checkOnly = true
				*code = run(ctx, opts)
				return nil
			},
		},
		newFingerprintCmd(code),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				printVersion()
				return nil
			},
		},
	)
	return root
}

func newFingerprintCmd(code *int) *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "fingerprint <url>",
		Short: "Print the cache key computed for a request URL and optional body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var bodyPtr *string
			if cmd.Flags().Changed("body") {
				bodyPtr = &body
			}
			id, err := fingerprint.Compute(args[0], bodyPtr)
			if err != nil {
				fmt.Fprintf(stdErr, "计算指纹失败: %v\n", err)
				*code = 1
				return nil
			}
			fmt.Fprintln(stdOut, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "请求正文（仅 POST/PUT/PATCH 请求参与指纹）")
	return cmd
}

// resolveConfigPath 结合 flag 与环境变量计算最终的配置路径。
func resolveConfigPath(flagValue string, flagSet bool) cliOptions {
	if flagSet && flagValue != "" {
		return cliOptions{configPath: flagValue, explicit: true}
	}
	if env := os.Getenv(configEnv); env != "" {
		return cliOptions{configPath: env, explicit: true}
	}
	return cliOptions{configPath: config.DefaultPath}
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(ctx context.Context, opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLoggerTo(cfg.Global, stdOut)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	overwrites, err := cfg.LoadOverwrites()
	if err != nil {
		fmt.Fprintf(stdErr, "加载覆盖文件失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["backend"] = cfg.Global.StorageBackend
		fields["behavior"] = cfg.Proxy.ProxyBehavior
		fields["overwrites"] = len(overwrites)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 存储后端 → 响应缓存 → 代理服务，所有请求共享同一缓存与设置实例。
	blobs, err := cache.OpenStore(cache.Backend(cfg.Global.StorageBackend), cfg.Global.StoragePath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存存储失败: %v\n", err)
		return 1
	}
	defer blobs.Close()

	sink := diagnostics.NewLogSink(logger)
	svc, err := proxy.New(proxy.Options{
		Name:       version.Name,
		Settings:   cfg.Proxy.Settings(),
		Overwrites: overwrites,
		Cache:      cache.NewResponseCache(blobs, cfg.Global.CacheDir, sink),
		Fetcher:    upstream.NewFetcher(upstream.NewClient(cfg.Global.UpstreamTimeout.DurationValue())),
		Logger:     logger,
		Sink:       sink,
		AdminAPI:   cfg.Global.AdminAPI,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建代理服务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["backend"] = cfg.Global.StorageBackend
	fields["storage_path"] = cfg.Global.StoragePath
	fields["proxy_port"] = cfg.Proxy.ProxyPort
	fields["source"] = upstream.TargetURL(cfg.Proxy.SourceHost, cfg.Proxy.SourcePort, "/")
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := svc.Start(ctx); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务关闭失败: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig 读取配置；未显式指定且默认文件不存在时使用内置默认值。
func loadConfig(opts cliOptions) (*config.Config, error) {
	if !opts.explicit {
		if _, err := os.Stat(opts.configPath); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(opts.configPath)
}
