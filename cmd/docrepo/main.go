package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"doc-repository/internal/app"
	"doc-repository/internal/docrepo"
	"doc-repository/pkg/config"
	pkgerrors "doc-repository/pkg/errors"
	"doc-repository/pkg/metrics"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(0)
	}
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("docrepo " + version)
		return
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	boot, err := app.NewBootstrap(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		os.Exit(1)
	}

	c := &cli{boot: boot, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	code := c.run(ctx, cmd, args)

	if cfg.Monitoring.Prometheus.Enable {
		_ = metrics.WritePrometheus(os.Stderr)
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := boot.Close(closeCtx); err != nil {
		fmt.Fprintf(os.Stderr, "关闭失败: %v\n", err)
	}
	cancel()
	os.Exit(code)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docrepo <command> [args]")
	fmt.Fprintln(w, "  version             - 显示版本")
	fmt.Fprintln(w, "  config              - 显示配置概要")
	fmt.Fprintln(w, "  get <id>            - 输出文档 JSON")
	fmt.Fprintln(w, "  put <id|-> <file|-> - 保存 JSON 文档；id 为 - 时生成 UUID")
	fmt.Fprintln(w, "  delete <id>         - 删除文档（幂等）")
	fmt.Fprintln(w, "  purge <id>          - 删除该 id 的全部物理对象（处理重复对象）")
	fmt.Fprintln(w, "  locate <id>         - 列出该 id 对应的物理键")
	fmt.Fprintln(w, "  list                - 逐行输出全部文档")
	fmt.Fprintln(w, "  reindex             - 按对象元数据回填索引侧表（需配置 storage.index）")
	fmt.Fprintln(w, "配置文件: $DOCREPO_CONFIG，默认 "+config.DefaultConfigPath)
}

// cli 各子命令共享同一个 Bootstrap，由 main 负责关闭
type cli struct {
	boot   *app.Bootstrap
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) run(ctx context.Context, cmd string, args []string) int {
	if cmd == "config" {
		c.printConfig()
		return 0
	}

	repo, err := app.OpenRepository[json.RawMessage](ctx, c.boot)
	if err != nil {
		return c.fail(err)
	}

	need := map[string]int{"get": 1, "put": 2, "delete": 1, "purge": 1, "locate": 1, "list": 0, "reindex": 0}
	n, ok := need[cmd]
	if !ok {
		printUsage(c.stderr)
		return 1
	}
	if len(args) < n {
		fmt.Fprintf(c.stderr, "Usage: docrepo %s%s\n", cmd, usageArgs(cmd))
		return 1
	}

	switch cmd {
	case "get":
		err = c.get(ctx, repo, args[0])
	case "put":
		err = c.put(ctx, repo, args[0], args[1])
	case "delete":
		err = repo.Delete(ctx, args[0])
	case "purge":
		var removed int
		removed, err = repo.Purge(ctx, args[0])
		if err == nil {
			fmt.Fprintf(c.stdout, "purged %d\n", removed)
		}
	case "locate":
		var keys []string
		keys, err = repo.Locate(ctx, args[0])
		for _, k := range keys {
			fmt.Fprintln(c.stdout, k)
		}
	case "list":
		err = c.list(ctx, repo)
	case "reindex":
		err = c.reindex(ctx, repo)
	}
	if err != nil {
		return c.fail(err)
	}
	return 0
}

func usageArgs(cmd string) string {
	switch cmd {
	case "put":
		return " <id|-> <file|->"
	case "list", "reindex":
		return ""
	default:
		return " <id>"
	}
}

func (c *cli) fail(err error) int {
	var multi *docrepo.MultipleObjectsFoundError
	if errors.As(err, &multi) {
		fmt.Fprintf(c.stderr, "仓库数据不一致: id %q 对应 %d 个物理对象，请确认后使用 purge 清理\n", multi.ID, len(multi.Keys))
		for _, k := range multi.Keys {
			fmt.Fprintf(c.stderr, "  %s\n", k)
		}
		return 3
	}
	fmt.Fprintf(c.stderr, "error: %v\n", err)
	return 1
}

func (c *cli) printConfig() {
	cfg := c.boot.Config
	fmt.Fprintf(c.stdout, "repository.bucket=%s\n", cfg.Repository.Bucket)
	fmt.Fprintf(c.stdout, "repository.prefix=%s\n", docrepo.NormalizePrefix(cfg.Repository.Prefix))
	fmt.Fprintf(c.stdout, "storage.object.type=%s\n", cfg.Storage.Object.Type)
	fmt.Fprintf(c.stdout, "storage.index.type=%s\n", cfg.Storage.Index.Type)
}

func (c *cli) get(ctx context.Context, repo *docrepo.Repository[json.RawMessage], id string) error {
	doc, ok, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.Wrapf(pkgerrors.ErrNotFound, "document %q", id)
	}
	_, err = fmt.Fprintln(c.stdout, string(doc))
	return err
}

func (c *cli) put(ctx context.Context, repo *docrepo.Repository[json.RawMessage], id, src string) error {
	if id == "-" {
		id = uuid.NewString()
	}
	var r io.Reader = c.stdin
	if src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if !json.Valid(body) {
		return pkgerrors.InvalidArgf("input is not valid JSON")
	}
	coords, err := repo.Save(ctx, id, json.RawMessage(body))
	if err != nil {
		return err
	}
	return json.NewEncoder(c.stdout).Encode(map[string]string{"id": id, "bucket": coords.Bucket, "key": coords.Key})
}

func (c *cli) list(ctx context.Context, repo *docrepo.Repository[json.RawMessage]) error {
	docs, err := repo.List(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.stdout)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) reindex(ctx context.Context, repo *docrepo.Repository[json.RawMessage]) error {
	l, ok := repo.Locator().(*docrepo.IndexLocator)
	if !ok {
		return pkgerrors.InvalidArgf("reindex requires storage.index.type to be memory or redis")
	}
	n, err := l.Rebuild(ctx, c.boot.ObjectStore, repo.Bucket(), repo.Prefix())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "indexed %d\n", n)
	return nil
}
