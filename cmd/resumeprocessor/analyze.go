package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"resume-ats-go/internal/bootstrap"
	"resume-ats-go/internal/config"
	"resume-ats-go/internal/processor"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// 定义分析命令的命令行参数
var (
	analyzeRole    = pflag.String("role", "", "目标岗位 (必填)")
	analyzeJDFile  = pflag.String("jd-file", "", "职位描述文本文件，可选")
	analyzeOutJSON = pflag.String("analyze-output", "", "输出分析报告到JSON文件")
)

// 处理完整分析命令；结果不写入数据库
func handleAnalyzeCommand() {
	if *analyzeRole == "" {
		fmt.Println("错误: 必须提供目标岗位。使用 --role 参数。")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	var jd string
	if *analyzeJDFile != "" {
		data, err := os.ReadFile(*analyzeJDFile)
		if err != nil {
			fmt.Printf("读取职位描述失败: %v\n", err)
			os.Exit(1)
		}
		jd = string(data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	analyzer := bootstrap.BuildAnalyzer(ctx, cfg, nil, nil, log)

	startTime := time.Now()
	report, err := analyzer.Analyze(ctx, processor.AnalysisRequest{
		Document:       readResume(),
		Role:           *analyzeRole,
		JobDescription: jd,
	})
	if err != nil {
		fmt.Printf("分析失败 [%s]: %v\n", processor.CodeOf(err), err)
		os.Exit(1)
	}
	fmt.Printf("分析完成! 耗时: %v\n", time.Since(startTime))

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Printf("序列化分析报告失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if *analyzeOutJSON != "" {
		if err := os.WriteFile(*analyzeOutJSON, out, 0644); err != nil {
			fmt.Printf("保存到文件失败: %v\n", err)
		} else {
			fmt.Printf("报告已保存到: %s\n", *analyzeOutJSON)
		}
	}
}
