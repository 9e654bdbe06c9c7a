// 项目文件命令行工具：离线校验、格式转换与保存项目的上传/下载
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"site-report/internal/legend"
	"site-report/internal/migrate"
	"site-report/internal/project"
	"site-report/internal/store"
	"site-report/internal/utils"
)

var errUsage = errors.New("usage")

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  validate <file>                     导入项目/GeoJSON 文件并输出导入摘要")
	fmt.Fprintln(w, "  geojson <file> <out>                导出为 GeoJSON FeatureCollection")
	fmt.Fprintln(w, "  categories <file> <out.json|.yaml>  导出类别文件")
	fmt.Fprintln(w, "  legend <file>                       按类别列出可见要素")
	fmt.Fprintln(w, "  push <name> <file>                  保存到项目库（需要 PG_* 环境变量）")
	fmt.Fprintln(w, "  pull <name> <out>                   从项目库下载")
	fmt.Fprintln(w, "  list                                列出项目库中的项目")
	fmt.Fprintln(w, "  [--env <path>] 可选的 .env 文件")
}

func main() {
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		if args[i] == "--env" && i+1 < len(args) {
			_ = godotenv.Load(args[i+1])
			args = append(args[:i:i], args[i+2:]...)
			break
		}
	}
	if err := run(context.Background(), args, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printHelp(os.Stderr)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch {
	case cmd == "validate" && len(rest) == 1:
		s, rep, err := load(rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "kind: %s\nfeatures: %d\nreassigned: %d (to %q)\nskipped: %d\ncategories: %d\n",
			rep.Kind, rep.Features, rep.Reassigned, rep.DefaultCategory, rep.Skipped, s.Categories.Len())
		return nil
	case cmd == "geojson" && len(rest) == 2:
		s, _, err := load(rest[0])
		if err != nil {
			return err
		}
		b, err := s.ExportGeoJSON()
		if err != nil {
			return err
		}
		return os.WriteFile(rest[1], b, 0o644)
	case cmd == "categories" && len(rest) == 2:
		s, _, err := load(rest[0])
		if err != nil {
			return err
		}
		var b []byte
		if strings.HasSuffix(rest[1], ".yaml") || strings.HasSuffix(rest[1], ".yml") {
			b, err = yaml.Marshal(s.Categories.Entries())
		} else {
			b, err = s.ExportCategories()
		}
		if err != nil {
			return err
		}
		return os.WriteFile(rest[1], b, 0o644)
	case cmd == "legend" && len(rest) == 1:
		s, _, err := load(rest[0])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, e := range legend.Build(s) {
			fmt.Fprintf(tw, "%s\t(%d)\t%s\n", e.Category, e.Count, e.Highest)
			for _, it := range e.Items {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", it.Name, it.Kind, it.Severity)
			}
		}
		return tw.Flush()
	case cmd == "push" && len(rest) == 2:
		s, _, err := load(rest[1])
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		doc, err := s.ExportProject(time.Now())
		if err != nil {
			return err
		}
		return st.SaveProject(ctx, rest[0], s.Title, s.Features.Len(), doc)
	case cmd == "pull" && len(rest) == 2:
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		doc, err := st.LoadProject(ctx, rest[0])
		if err != nil {
			return err
		}
		return os.WriteFile(rest[1], doc, 0o644)
	case cmd == "list" && len(rest) == 0:
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		list, err := st.ListProjects(ctx)
		if err != nil {
			return err
		}
		return json.NewEncoder(out).Encode(list)
	}
	return errUsage
}

// load：读取文件并导入到新的项目状态
func load(path string) (*project.State, *project.ImportReport, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	s := project.New(nil)
	rep, err := s.Import(b)
	if err != nil {
		return nil, nil, err
	}
	return s, rep, nil
}

func openStore(ctx context.Context) (*store.Store, error) {
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return nil, err
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store.AttachDB(db), nil
}
