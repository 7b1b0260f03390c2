package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// 命令行参数定义
var (
	resumeFilePath = pflag.StringP("file", "f", "", "简历文件路径，支持 PDF/DOCX (必填)")
	maxLen         = pflag.Int("maxlen", 1000, "显示的文本最大长度，设为-1显示全部")
	command        = pflag.String("cmd", "extract", "执行的命令: extract=仅提取文本, skills=联系方式与技能, analyze=完整分析")
	configPath     = pflag.StringP("config", "c", "", "配置文件路径 (analyze 命令使用)")
)

func main() {
	pflag.Parse()

	if *resumeFilePath == "" {
		fmt.Println("错误: 必须提供简历文件路径。使用 --file 参数。")
		pflag.Usage()
		os.Exit(1)
	}

	switch *command {
	case "extract":
		handleExtractCommand()
	case "skills":
		handleSkillsCommand()
	case "analyze":
		handleAnalyzeCommand()
	default:
		fmt.Printf("错误: 未知命令 '%s'。支持的命令: extract, skills, analyze\n", *command)
		pflag.Usage()
		os.Exit(1)
	}
}
